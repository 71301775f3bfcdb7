package widgets

import (
	"fmt"
	"strings"
)

// KeyboardStyle sets the glyphs and colors of a piano row
type KeyboardStyle struct {
	White, Black, Held                rune
	WhiteColor, BlackColor, HeldColor [3]uint8
}

func isBlack(key uint8) bool {
	switch key % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// RenderKeyboard draws keys lo..hi on one row with octave labels under
// every C.
func RenderKeyboard(lo, hi uint8, held func(key uint8) bool, st KeyboardStyle) string {
	var keys, labels strings.Builder
	for k := int(lo); k <= int(hi); k++ {
		key := uint8(k)
		switch {
		case held != nil && held(key):
			keys.WriteString(RenderPad(st.HeldColor, st.Held))
		case isBlack(key):
			keys.WriteString(RenderPad(st.BlackColor, st.Black))
		default:
			keys.WriteString(RenderPad(st.WhiteColor, st.White))
		}
	}

	// labels are padded to the key count; a label may run past its key
	for k := int(lo); k <= int(hi); {
		if k%12 == 0 {
			label := fmt.Sprintf("C%d", k/12-1)
			labels.WriteString(label)
			k += len(label)
			continue
		}
		labels.WriteByte(' ')
		k++
	}
	return keys.String() + "\n" + labels.String()
}
