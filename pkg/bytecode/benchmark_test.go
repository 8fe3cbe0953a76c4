// Package bytecode benchmarks
//
// These benchmarks measure the performance of:
// - Assembling .jasm source
// - VM execution
// - CBOR encoding and digests
//
// Run: go test -bench=. ./pkg/bytecode/...
// Run with memory stats: go test -bench=. -benchmem ./pkg/bytecode/...
package bytecode

import (
	"testing"
)

// ============================================================
// Assembler Benchmarks
// ============================================================

// BenchmarkAssembleClass measures parsing of a small class
func BenchmarkAssembleClass(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Assemble("greeter.jasm", greeterSource); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDisassemble measures rendering of a small class
func BenchmarkDisassemble(b *testing.B) {
	classes := mustAssemble(b, greeterSource)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = classes[0].Disassemble()
	}
}

// ============================================================
// Execution Benchmarks
// ============================================================

// BenchmarkExecuteAddition measures a single static call
func BenchmarkExecuteAddition(b *testing.B) {
	vm := mustVM(b, mathSource)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := vm.InvokeStatic("demo/Math", "add", "(II)I", int32(10), int32(20)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecuteLoop100 measures a counted loop with long arithmetic
func BenchmarkExecuteLoop100(b *testing.B) {
	vm := mustVM(b, mathSource)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := vm.InvokeStatic("demo/Math", "sumTo", "(I)J", int32(100)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecuteVirtual measures virtual dispatch through a super call
func BenchmarkExecuteVirtual(b *testing.B) {
	vm := mustVM(b, objectSource)
	obj, err := vm.New("demo/Loud")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := vm.Invoke(obj, "describe", "()Ljava/lang/String;"); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================
// Encoding Benchmarks
// ============================================================

// BenchmarkMarshalMethod measures canonical CBOR encoding
func BenchmarkMarshalMethod(b *testing.B) {
	m := sampleMethod()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := MarshalMethod(m); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMethodDigest measures hashing of a method
func BenchmarkMethodDigest(b *testing.B) {
	m := sampleMethod()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := MethodDigest(m); err != nil {
			b.Fatal(err)
		}
	}
}
