package game

// hclAlphabet is the GHost++ HCL alphabet: handicap values 50,60,70,80,90,100
// map to indices 0..5, so each HCL character must resolve to one of those
// six values through this table. Characters outside the alphabet encode
// as the "no-op" handicap (100).
const hclAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var hclHandicaps = [6]byte{50, 60, 70, 80, 90, 100}

// EncodeHCL is the pure function (hcl_string, slots) -> slots' from
// spec.md §9's design note: each character of hcl is encoded into the
// handicap of the next occupied, non-observer slot, in slot-index order.
// Slots beyond the string's length, or when hcl is empty, are left
// unmodified. Returns false if hcl does not fit the number of eligible
// slots.
func EncodeHCL(hcl string, slots []Slot) ([]Slot, bool) {
	if hcl == "" {
		return slots, true
	}

	out := make([]Slot, len(slots))
	copy(out, slots)

	eligible := make([]int, 0, len(out))
	for i, s := range out {
		if s.Status == SlotOccupied && !s.IsObserver() {
			eligible = append(eligible, i)
		}
	}
	if len(hcl) > len(eligible) {
		return slots, false
	}

	for i, ch := range hcl {
		idx := eligible[i]
		out[idx].Handicap = encodeHCLChar(byte(ch))
	}
	return out, true
}

func encodeHCLChar(ch byte) byte {
	pos := -1
	for i := 0; i < len(hclAlphabet); i++ {
		if hclAlphabet[i] == ch || (ch >= 'A' && ch <= 'Z' && hclAlphabet[i] == ch+32) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return 100
	}
	return hclHandicaps[pos%6]
}

// DecodeHCL reverses EncodeHCL well enough to read back a previously
// injected configuration string, used by !handicapcheck (!hc) to echo the active value
// when m_hcl_override was set directly via handicaps rather than the
// command string.
func DecodeHCL(slots []Slot) string {
	buf := make([]byte, 0, len(slots))
	for _, s := range slots {
		if s.Status != SlotOccupied || s.IsObserver() {
			continue
		}
		for i, h := range hclHandicaps {
			if s.Handicap == h {
				buf = append(buf, hclAlphabet[i])
				break
			}
		}
	}
	return string(buf)
}
