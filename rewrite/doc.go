// Package rewrite turns Class.forName calls on constant class names into
// direct class initialization and cleans up what that leaves behind.
//
// For every call whose argument the constprop engine resolves to a class
// name the pass may rewrite
//
//	ldc "com.example.Impl"
//	invokestatic java/lang/Class.forName(Ljava/lang/String;)Ljava/lang/Class;
//
// into
//
//	invokestatic java/lang/invoke/MethodHandles.lookup()Ljava/lang/invoke/MethodHandles$Lookup;
//	ldc Lcom/example/Impl;
//	invokevirtual java/lang/invoke/MethodHandles$Lookup.ensureInitialized(Ljava/lang/Class;)Ljava/lang/Class;
//
// In ModeModule the target must be visible from the caller's module; in
// ModeGlobal any constant name qualifies. A ClassNotFoundException handler
// is removed once every call it guards was rewritten, and a final sweep
// deletes the code no longer reachable.
package rewrite
