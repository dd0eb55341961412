package chain

// Qualified formats a contract-scoped identifier exactly the way the ledger
// API expects it: <contract-address>::<module-name>::<type-or-function-name>.
func Qualified(address, module, name string) string {
	return address + "::" + module + "::" + name
}
