package android

import "strings"

// keycodeMap maps model key names to Android key codes.
var keycodeMap = map[string]string{
	"home":        "KEYCODE_HOME",
	"back":        "KEYCODE_BACK",
	"enter":       "KEYCODE_ENTER",
	"return":      "KEYCODE_ENTER",
	"backspace":   "KEYCODE_DEL",
	"delete":      "KEYCODE_FORWARD_DEL",
	"del":         "KEYCODE_FORWARD_DEL",
	"tab":         "KEYCODE_TAB",
	"space":       "KEYCODE_SPACE",
	"esc":         "KEYCODE_ESCAPE",
	"escape":      "KEYCODE_ESCAPE",
	"menu":        "KEYCODE_MENU",
	"power":       "KEYCODE_POWER",
	"volume_up":   "KEYCODE_VOLUME_UP",
	"volume_down": "KEYCODE_VOLUME_DOWN",
	"up":          "KEYCODE_DPAD_UP",
	"down":        "KEYCODE_DPAD_DOWN",
	"left":        "KEYCODE_DPAD_LEFT",
	"right":       "KEYCODE_DPAD_RIGHT",
	"arrowup":     "KEYCODE_DPAD_UP",
	"arrowdown":   "KEYCODE_DPAD_DOWN",
	"arrowleft":   "KEYCODE_DPAD_LEFT",
	"arrowright":  "KEYCODE_DPAD_RIGHT",
	"pageup":      "KEYCODE_PAGE_UP",
	"pagedown":    "KEYCODE_PAGE_DOWN",
	"ctrl":        "KEYCODE_CTRL_LEFT",
	"control":     "KEYCODE_CTRL_LEFT",
	"shift":       "KEYCODE_SHIFT_LEFT",
	"alt":         "KEYCODE_ALT_LEFT",
	"meta":        "KEYCODE_META_LEFT",
	"recent":      "KEYCODE_APP_SWITCH",
	"app_switch":  "KEYCODE_APP_SWITCH",
}

// keycodes maps key names, leaving unknown names to adb as KEYCODE_<NAME>.
func keycodes(keys []string) []string {
	codes := make([]string, len(keys))
	for i, k := range keys {
		code, ok := keycodeMap[k]
		if !ok {
			code = "KEYCODE_" + strings.ToUpper(k)
		}

		codes[i] = code
	}

	return codes
}
