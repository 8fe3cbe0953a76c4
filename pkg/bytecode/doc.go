// Package bytecode models JVM-style method bodies as instruction streams
// and provides the tooling the weaver needs around them.
//
// # Architecture Overview
//
// The package consists of several components:
//
//   - Opcodes: the class-file opcode values the weaver reads and emits, plus
//     pseudo opcodes for labels, line numbers, exception table entries and
//     local variable debug entries. Every opcode maps to exactly one Shape.
//
//   - Instruction: a tagged variant over Shape. Rewriting passes switch on
//     Instruction.Shape() and only look at the fields that shape defines.
//
//   - Type: field and method descriptor parsing, slot widths and the typed
//     load/store/return opcode for each type.
//
//   - Method, Class: definitions with access flags, annotations and bodies.
//     Class is both the reader model and the destination generated methods
//     are appended to (AddMethods is all-or-nothing).
//
//   - Assembler / Disassembler: a line-oriented .jasm text format. The
//     disassembler output assembles back to an equal class.
//
//   - Wire: canonical CBOR encoding. Equal values always encode to equal
//     bytes, so SHA-256 digests of the encoding identify method sets.
//
//   - VM: an interpreter for loaded classes with virtual and super dispatch,
//     exception tables, boxing natives for the java/lang wrappers and a small
//     String/StringBuilder/PrintStream surface. Extra natives can be
//     registered with RegisterNative.
//
// # Values
//
// Category 2 values (long, double) occupy one operand stack entry and two
// local slots. pop2 and dup2 look at the runtime type of the top entry to
// decide how many entries to move.
package bytecode
