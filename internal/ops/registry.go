package ops

// Registry is the tagged-variant-plus-dispatch-table design spec §9
// recommends over dynamic method dispatch: adding an opcode means
// declaring a Handler, registering its fee/recyclable behaviour implicitly
// through the Handler methods, and adding one line here.
var Registry = map[string]Handler{
	"deploy":    DeployHandler{},
	"mint":      MintHandler{},
	"transfer":  TransferHandler,
	"send":      SendHandler,
	"burn":      BurnHandler{},
	"issue":     IssueHandler{},
	"chown":     ChownHandler{},
	"list":      ListHandler{},
	"blacklist": BlacklistHandler{},
}

// Lookup returns the handler registered for op, and whether it exists.
func Lookup(op string) (Handler, bool) {
	h, ok := Registry[op]
	return h, ok
}

// IsRecyclable reports whether op is permitted to appear on non-first
// transaction inputs (spec glossary: "Recyclable opcode").
func IsRecyclable(op string) bool {
	h, ok := Registry[op]
	return ok && h.Recyclable()
}
