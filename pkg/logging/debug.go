package logging

// DebugEnable is set by the linker (-X) to include Debuggable sections.
var DebugEnable string

// Debuggable means that the build should include verbose debugging logic. The
// compiler *should* erase anything that's otherwise in a conditional.
var Debuggable = DebugEnable != ""
