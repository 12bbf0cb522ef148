// Package config loads the bot's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Database holds connection parameters for one PostgreSQL-backed handle.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxConns int32 `yaml:"max_conns"` // default: pgxpool's own default
}

// DSN returns the PostgreSQL connection string for this handle.
func (d Database) DSN() string {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
	if d.MaxConns > 0 {
		dsn += fmt.Sprintf("&pool_max_conns=%d", d.MaxConns)
	}
	return dsn
}

// Realm holds one chat/matchmaking server's connection parameters. The
// realm protocol itself is out of scope (spec.md §1) — these are just
// the dial/admin-policy boundary contract fields the core needs.
type Realm struct {
	Server            string   `yaml:"server"`
	CDKeyOwner        string   `yaml:"cdkeyowner"`
	ConnectTimeoutSec int      `yaml:"connect_timeout_sec"`
	ReconnectWaitSec  int      `yaml:"reconnect_wait_time"`
	Admins            []string `yaml:"admins"`
	RootAdmins        []string `yaml:"rootadmins"`
}

// Databases bundles the two logical handles described in spec §6: the
// primary (game stats) database and the local (IP-to-country) database.
// The local handle is a boundary contract only — the CSV IP-to-country
// loader behind it is out of scope (spec.md §1) — but the Host still owns
// a health flag for it, since a broken local handle is fatal per §4.1/§7.
type Databases struct {
	Primary Database `yaml:"primary"`
	Local   Database `yaml:"local"`
}

// Host holds every bot_*/autohost_*/lan_*/udp_* key consumed by the core,
// per spec.md §6.
type Host struct {
	LogLevel string `yaml:"log_level"`

	HostPort int `yaml:"bot_hostport"`

	ReconnectEnabled bool `yaml:"bot_reconnect"`
	ReconnectPort    int  `yaml:"bot_reconnectport"`

	MaxGames             int    `yaml:"bot_maxgames"`
	AutoHostMaxGames     int    `yaml:"autohost_maxgames"`
	AutoHostStartPlayers int    `yaml:"autohost_startplayers"`
	AutoHostGameName     string `yaml:"autohost_gamename"`
	AutoHostOwner        string `yaml:"autohost_owner"`
	AutoHostMap          string `yaml:"autohost_map"`
	RehostDelay          int    `yaml:"bot_rehostdelay"` // seconds

	LatencyMS          int  `yaml:"bot_latency"`
	SyncLimit          int  `yaml:"bot_synclimit"`
	AutoKickPingMS     int  `yaml:"bot_autokickping"`
	LCPings            bool `yaml:"bot_lcpings"`
	DesyncKick         bool `yaml:"bot_desynckick"`
	UseNormalCountdown bool `yaml:"bot_usenormalcountdown"`

	VoteKickAllowed    bool `yaml:"bot_votekickallowed"`
	VoteKickPercentage int  `yaml:"bot_votekickpercentage"`

	LobbyTimeLimitMinutes int `yaml:"bot_lobbytimelimit"`

	ObserverSlots     int  `yaml:"bot_observer_slots"`
	AddCompsAllowed   bool `yaml:"bot_addcompsallowed"`
	HideAdminCommands bool `yaml:"hide_admin_commands"`

	// TmpRootPasswordHash is a bcrypt hash, never a plaintext password —
	// see internal/admin.VerifyTmpRootPassword.
	TmpRootPasswordHash string `yaml:"bot_tmprootpassword"`
	LANAdmins           int    `yaml:"lan_admins"`
	LANRootAdmins       int    `yaml:"lan_rootadmins"`

	UDPBroadcastTarget string `yaml:"udp_broadcasttarget"`
	UDPDontRoute       bool   `yaml:"udp_dontroute"`

	TCPStatus  bool `yaml:"bot_tcpstatus"`
	StatusPort int  `yaml:"bot_statusport"`

	Database Databases `yaml:"database"`
	Realms   []Realm   `yaml:"realms"`
}

// Default returns a Host config with sensible defaults, matching GHost++'s
// documented defaults where spec.md names one.
func Default() Host {
	return Host{
		LogLevel:              "info",
		HostPort:              6112,
		ReconnectEnabled:      true,
		ReconnectPort:         6114,
		MaxGames:              20,
		AutoHostMaxGames:      0,
		AutoHostStartPlayers:  0,
		RehostDelay:           10,
		LatencyMS:             100,
		SyncLimit:             50,
		AutoKickPingMS:        0,
		LCPings:               true,
		DesyncKick:            false,
		UseNormalCountdown:    false,
		VoteKickAllowed:       true,
		VoteKickPercentage:    100,
		LobbyTimeLimitMinutes: 10,
		ObserverSlots:         0,
		AddCompsAllowed:       true,
		UDPBroadcastTarget:    "255.255.255.255",
		UDPDontRoute:          false,
		TCPStatus:             false,
		StatusPort:            6113,
		Database: Databases{
			Primary: Database{Host: "127.0.0.1", Port: 5432, User: "ghostbot", Password: "ghostbot", DBName: "ghostbot", SSLMode: "disable"},
			Local:   Database{Host: "127.0.0.1", Port: 5432, User: "ghostbot", Password: "ghostbot", DBName: "ghostbot_local", SSLMode: "disable"},
		},
	}
}

// Load reads default.cfg first (if present), then overlays path (if it
// exists and differs from "default.cfg"). A missing file is not an error —
// spec.md §6: "default.cfg is always read first" but the bot runs fine on
// pure defaults.
func Load(path string) (Host, error) {
	cfg := Default()

	if err := overlay(&cfg, "default.cfg"); err != nil {
		return cfg, fmt.Errorf("loading default.cfg: %w", err)
	}

	if path != "" && path != "default.cfg" {
		if err := overlay(&cfg, path); err != nil {
			return cfg, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	return cfg, nil
}

func overlay(cfg *Host, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
