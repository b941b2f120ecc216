package machine

// JIT is an explicit no-op extension point mirroring the original
// implementation's asmjit-backed JITCompiler, compiled out in every build
// the original shipped (USE_JIT was never defined in its CMake presets).
// Compile always reports that it produced no native code, so the dispatch
// loop's single JIT-dispatch check (absent here, since there is nothing to
// dispatch to) never has anywhere else to go: bytecode is always what
// Closure runs.
type JIT struct{}

// Compile reports whether it JIT-compiled proto; it never does.
func (*JIT) Compile(proto any) bool { return false }
