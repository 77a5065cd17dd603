// Package classfile models decoded JVM classes as consumed by the linker
// passes.
//
// The binary class-file container is decoded and re-encoded elsewhere; this
// package holds the in-memory shape shared by both sides:
//
//   - Opcodes: the full JVM instruction set with per-opcode metadata.
//
//   - Instruction: a flat, tree-API style instruction. Labels and source
//     line markers are pseudo-instructions that occupy an index, so
//     analyses can attach facts to them.
//
//   - Method / Class: instruction lists plus exception, local-variable
//     and line-number tables.
//
//   - Pool: every class being linked, addressed by (module, internal name),
//     together with the module descriptors.
//
// Pools travel between the decoder, the optimizer and the re-encoder as
// canonical CBOR (see MarshalPool).
package classfile
