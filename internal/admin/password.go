package admin

import "golang.org/x/crypto/bcrypt"

// HashTmpRootPassword produces the bcrypt hash stored in
// config.Host.TmpRootPasswordHash (bot_tmprootpassword). Run once at
// deploy time to populate the config file; never stored in plaintext.
func HashTmpRootPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyTmpRootPassword checks a !p candidate against the configured
// bcrypt hash (spec.md §4.3, §6 bot_tmprootpassword). An empty hash means
// the feature is disabled and never matches.
func VerifyTmpRootPassword(hash, candidate string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
