// Package constprop propagates constants through JVM method bodies.
//
// Analyze runs a forward dataflow over one method and produces a Frame
// (locals and operand stack of abstract Values) before every instruction.
// A Value is either a known Constant, a constant derived lazily from other
// values by a pure Combinator, or unknown. Calls to well-known library
// methods are folded through an EmulationTable.
//
// A Registry declares which local slots or stack positions matter. An
// Engine captures their values into a MethodAbstraction, and when an output
// is unresolved only because it depends on a parameter, Resolve looks up
// every call site in the pool and re-analyzes the method with the argument
// constants the callers agree on.
package constprop
