// Package weave generates proxy method chains around a target method.
//
// Given a target method and an ordered list of matched aspects, the
// builder produces one delegate method with the target's name and
// descriptor plus one private final proxy method per aspect:
//
//	greet            delegate, calls greet$p0
//	greet$p0         aspect 0 advice, invoke() calls greet$p1
//	greet$p1         aspect 1 advice, invoke() calls super.greet
//
// Advice bodies are ordinary compiled methods returning Object. They talk
// about the method they wrap through static calls on a marker type
// (ProxyTarget by default): invoke, argumentsCount, argumentType, argument,
// setArgument, arguments, argumentsClass, target, targetClass,
// targetMethodName and returnType. The rewriter replaces each call with
// concrete instructions, shifts the advice's local slots past the target's
// argument slots and redirects references to the aspect's own class onto
// the host class. Fields and helper methods of the advice class travel with
// it: they are copied onto the host under their aspect-scoped names in the
// same commit as the chain.
//
// Rewriting is a fold over the advice instruction stream. The only state
// carried between instructions is whether the result of a synthesized
// invoke is still waiting to be bridged, and the most recent int push
// (used as the argument index of the argument meta calls).
//
// Weaving is synchronous and free of shared mutable state. Independent
// target methods may be woven concurrently; WeaveClass does so and commits
// the results in binding order.
package weave
