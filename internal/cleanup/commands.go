package cleanup

import "strings"

// SettingCommand deletes a secure setting.
func SettingCommand(name string) []string {
	return []string{"shell", "settings", "delete", "secure", name}
}

// RemoveCommand deletes a file through su. adb joins shell arguments with
// spaces before the device shell parses them, so the rm invocation is quoted
// twice: once for the device shell and once for the shell started by su.
func RemoveCommand(path string) []string {
	return []string{"shell", "su", "-c", doubleQuote("rm " + singleQuote(path))}
}

// ClearCommand resets an installed package to its freshly installed state.
func ClearCommand(pkg string) []string {
	return []string{"shell", "pm", "clear", pkg}
}

func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")

func doubleQuote(s string) string {
	return `"` + doubleQuoteEscaper.Replace(s) + `"`
}
