package rewrite

import (
	"github.com/chazu/linkopt/classfile"
)

const (
	callerClass = "com/example/ClassForNameTest"
	targetName  = "com.example.Target"
	runtimeExc  = "java/lang/RuntimeException"
	npe         = "java/lang/NullPointerException"
)

func callForName(b *classfile.MethodBuilder, name string) *classfile.MethodBuilder {
	return b.LdcString(name).
		Invoke(classfile.OpInvokestatic, classOwner, forName, forNameDesc).
		Op(classfile.OpPop)
}

// rethrow emits "catch (X e) { throw new RuntimeException(e); }" on slot.
// It is six instructions long.
func rethrow(b *classfile.MethodBuilder, slot int) *classfile.MethodBuilder {
	return b.Var(classfile.OpAstore, slot).
		Type(classfile.OpNew, runtimeExc).
		Op(classfile.OpDup).
		Var(classfile.OpAload, slot).
		Invoke(classfile.OpInvokespecial, runtimeExc, "<init>", "(Ljava/lang/Throwable;)V").
		Op(classfile.OpAthrow)
}

func static(name string) *classfile.MethodBuilder {
	return classfile.NewMethodBuilder(classfile.AccPublic|classfile.AccStatic, name, "()V")
}

// buildSimple: try { forName(name) } catch (ClassNotFoundException e) { rethrow }
func buildSimple(name string) *classfile.Method {
	b := static("simple")
	start, end, handler, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(start)
	callForName(b, name)
	b.Mark(end).Jump(classfile.OpGoto, done)
	b.Mark(handler)
	rethrow(b, 0)
	b.Mark(done).Op(classfile.OpReturn)
	b.TryCatch(start, end, handler, ClassNotFound)
	return b.Build()
}

// buildJoint: catch (ClassNotFoundException | NullPointerException e)
func buildJoint() *classfile.Method {
	b := static("joint")
	start, end, handler, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(start)
	callForName(b, targetName)
	b.Mark(end).Jump(classfile.OpGoto, done)
	b.Mark(handler)
	rethrow(b, 0)
	b.Mark(done).Op(classfile.OpReturn)
	b.TryCatch(start, end, handler, ClassNotFound)
	b.TryCatch(start, end, handler, npe)
	return b.Build()
}

// buildMultiple: separate catch clauses for ClassNotFoundException and
// NullPointerException.
func buildMultiple() *classfile.Method {
	b := static("multiple")
	start, end, cnfe, other, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(start)
	callForName(b, targetName)
	b.Mark(end).Jump(classfile.OpGoto, done)
	b.Mark(cnfe)
	rethrow(b, 0)
	b.Mark(other)
	rethrow(b, 0)
	b.Mark(done).Op(classfile.OpReturn)
	b.TryCatch(start, end, cnfe, ClassNotFound)
	b.TryCatch(start, end, other, npe)
	return b.Build()
}

// buildFinally: try { forName } catch (ClassNotFoundException e) { rethrow }
// finally { System.out.println("done"); } laid out the way javac does it.
func buildFinally() *classfile.Method {
	b := static("withFinally")
	start, end, cnfe, cnfeEnd, catchAll, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	printDone := func() {
		b.Field(classfile.OpGetstatic, "java/lang/System", "out", "Ljava/io/PrintStream;").
			LdcString("done").
			Invoke(classfile.OpInvokevirtual, "java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	}
	b.Mark(start)
	callForName(b, targetName)
	b.Mark(end)
	printDone()
	b.Jump(classfile.OpGoto, done)
	b.Mark(cnfe)
	rethrow(b, 0)
	b.Mark(cnfeEnd)
	b.Mark(catchAll).Var(classfile.OpAstore, 1)
	printDone()
	b.Var(classfile.OpAload, 1).Op(classfile.OpAthrow)
	b.Mark(done).Op(classfile.OpReturn)
	b.TryCatch(start, end, cnfe, ClassNotFound)
	b.TryCatch(start, end, catchAll, "")
	b.TryCatch(cnfe, cnfeEnd, catchAll, "")
	return b.Build()
}

// buildNested: an outer try around forName(outer) and an inner try around
// forName(inner), each catching ClassNotFoundException.
func buildNested(name, outer, inner string) *classfile.Method {
	b := static(name)
	oStart, iStart, iEnd, iHandler, iDone, oEnd, oHandler, done :=
		b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(oStart)
	callForName(b, outer)
	b.Mark(iStart)
	callForName(b, inner)
	b.Mark(iEnd).Jump(classfile.OpGoto, iDone)
	b.Mark(iHandler)
	rethrow(b, 0)
	b.Mark(iDone)
	b.Mark(oEnd).Jump(classfile.OpGoto, done)
	b.Mark(oHandler)
	rethrow(b, 0)
	b.Mark(done).Op(classfile.OpReturn)
	b.TryCatch(iStart, iEnd, iHandler, ClassNotFound)
	b.TryCatch(oStart, oEnd, oHandler, ClassNotFound)
	return b.Build()
}

// buildShared: one ClassNotFoundException handler around forName(first)
// and forName(second).
func buildShared(first, second string) *classfile.Method {
	b := static("shared")
	start, end, handler, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(start)
	callForName(b, first)
	callForName(b, second)
	b.Mark(end).Jump(classfile.OpGoto, done)
	b.Mark(handler)
	rethrow(b, 0)
	b.Mark(done).Op(classfile.OpReturn)
	b.TryCatch(start, end, handler, ClassNotFound)
	return b.Build()
}

// buildSubroutine loads a class and then runs a jsr/ret subroutine, which
// the analyzer rejects.
func buildSubroutine() *classfile.Method {
	b := static("legacy")
	sub := b.NewLabel()
	callForName(b, targetName)
	b.Jump(classfile.OpJsr, sub).Op(classfile.OpReturn)
	b.Mark(sub).Var(classfile.OpAstore, 0).Var(classfile.OpRet, 0)
	return b.Build()
}

// buildPreserve: public test(String) passes its parameter to forName.
func buildPreserve() *classfile.Method {
	b := classfile.NewMethodBuilder(classfile.AccPublic|classfile.AccStatic, "test", "(Ljava/lang/String;)V")
	start, end, handler, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Mark(start).
		Var(classfile.OpAload, 0).
		Invoke(classfile.OpInvokestatic, classOwner, forName, forNameDesc).
		Op(classfile.OpPop)
	b.Mark(end).Jump(classfile.OpGoto, done)
	b.Mark(handler)
	rethrow(b, 1)
	b.Mark(done).Op(classfile.OpReturn)
	b.TryCatch(start, end, handler, ClassNotFound)
	return b.Build()
}

// buildCaller calls callee(String) with a constant.
func buildCaller(name, callee, arg string) *classfile.Method {
	b := static(name)
	return b.LdcString(arg).
		Invoke(classfile.OpInvokestatic, callerClass, callee, "(Ljava/lang/String;)V").
		Op(classfile.OpReturn).
		Build()
}

// buildPrivateLoader: private static load(String) { Class.forName(s); }
func buildPrivateLoader() *classfile.Method {
	b := classfile.NewMethodBuilder(classfile.AccPrivate|classfile.AccStatic, "load", "(Ljava/lang/String;)V")
	return b.Var(classfile.OpAload, 0).
		Invoke(classfile.OpInvokestatic, classOwner, forName, forNameDesc).
		Op(classfile.OpPop).
		Op(classfile.OpReturn).
		Build()
}

// buildUnreachable has a forName call after the return.
func buildUnreachable() *classfile.Method {
	b := static("dead").Op(classfile.OpReturn)
	return callForName(b, targetName).Op(classfile.OpReturn).Build()
}

// testPool puts the caller and com.example.Target in module app, which
// requires lib; lib exports com.lib.api to everyone.
func testPool(methods ...*classfile.Method) *classfile.Pool {
	pool := classfile.NewPool()
	pool.AddModule(&classfile.ModuleDescriptor{Name: "app", Requires: []classfile.Requires{{Module: "lib"}}})
	pool.AddModule(&classfile.ModuleDescriptor{Name: "lib", Exports: []classfile.Exports{{Package: "com.lib.api"}}})
	pool.Add("app", &classfile.Class{Access: classfile.AccModule, Name: classfile.ModuleInfoName})
	pool.Add("app", classfile.NewClass(classfile.AccPublic, callerClass, methods...))
	pool.Add("app", classfile.NewClass(classfile.AccPublic, "com/example/Target"))
	pool.Add("app", classfile.NewClass(0, "com/example/Sibling"))
	pool.Add("app", classfile.NewClass(classfile.AccPrivate, "com/example/Hidden"))
	pool.Add("app", classfile.NewClass(0, "com/other/PkgPrivate"))
	pool.Add("lib", classfile.NewClass(classfile.AccPublic, "com/lib/api/Service"))
	pool.Add("lib", classfile.NewClass(classfile.AccPublic, "com/lib/internal/Impl"))
	return pool
}

func countForName(m *classfile.Method) int {
	return len(forNameCalls(m))
}

func hasLookup(m *classfile.Method, desc string) bool {
	for i := 0; i+2 < len(m.Instructions); i++ {
		in := m.Instructions[i : i+3]
		if in[0].Matches(classfile.OpInvokestatic, handlesOwner, "lookup", lookupDesc) &&
			in[1].Kind == classfile.KindLdc && in[1].Const.Kind == classfile.LdcType && in[1].Const.Str == desc &&
			in[2].Matches(classfile.OpInvokevirtual, lookupOwner, "ensureInitialized", ensureDesc) {
			return true
		}
	}
	return false
}

func handlerTypes(m *classfile.Method) []string {
	out := make([]string, 0, len(m.TryCatch))
	for _, tc := range m.TryCatch {
		out = append(out, tc.Type)
	}
	return out
}
