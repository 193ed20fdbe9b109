package hybrid

// keyNameMap maps model key names to the names the sandbox input device accepts.
var keyNameMap = map[string]string{
	"control":    "ctrl",
	"cmd":        "command",
	"meta":       "command",
	"super":      "win",
	"option":     "alt",
	"return":     "enter",
	"escape":     "esc",
	"del":        "delete",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
	"page_up":    "pageup",
	"page_down":  "pagedown",
	"spacebar":   "space",
	"caps_lock":  "capslock",
}
