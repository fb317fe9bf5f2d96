package cli

// SetSlogTo is SetSlog writing JSON logs to w.
var SetSlogTo = setSlog
