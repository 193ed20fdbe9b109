package desktop

// keysymMap maps model key names to X keysyms.
var keysymMap = map[string]string{
	"ctrl":       "ctrl",
	"control":    "ctrl",
	"alt":        "alt",
	"option":     "alt",
	"shift":      "shift",
	"cmd":        "super",
	"command":    "super",
	"meta":       "super",
	"win":        "super",
	"enter":      "Return",
	"return":     "Return",
	"esc":        "Escape",
	"escape":     "Escape",
	"tab":        "Tab",
	"space":      "space",
	"backspace":  "BackSpace",
	"delete":     "Delete",
	"del":        "Delete",
	"up":         "Up",
	"down":       "Down",
	"left":       "Left",
	"right":      "Right",
	"arrowup":    "Up",
	"arrowdown":  "Down",
	"arrowleft":  "Left",
	"arrowright": "Right",
	"home":       "Home",
	"end":        "End",
	"pageup":     "Prior",
	"pagedown":   "Next",
	"insert":     "Insert",
	"capslock":   "Caps_Lock",
	"f1":         "F1",
	"f2":         "F2",
	"f3":         "F3",
	"f4":         "F4",
	"f5":         "F5",
	"f6":         "F6",
	"f7":         "F7",
	"f8":         "F8",
	"f9":         "F9",
	"f10":        "F10",
	"f11":        "F11",
	"f12":        "F12",
}
