package constprop

import (
	"github.com/chazu/linkopt/classfile"
)

const fixtureOwner = "com/example/Test"

// buildLocalsFixture builds:
//
//	static void test(int a) {
//	    int a_ = -a;                      // 51
//	    int b = 1;                        // 52
//	    int b_ = -b;                      // 53
//	    int b__ = b_ + 42;                // 54
//	    String s = "123";                 // 55
//	    int s_ = Integer.parseInt(s);     // 56
//	    int s__ = s.length();             // 57
//	    String c = "com.example.MySpi";   // 58
//	    Class<?> c_ = Class.forName(c);   // 59
//	    String c__ = c_.getName();        // 60
//	}                                     // 61
func buildLocalsFixture() *classfile.Method {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "test", "(I)V")
	start, end := b.NewLabel(), b.NewLabel()

	b.Mark(start)
	b.Line(51).Var(classfile.OpIload, 0).Op(classfile.OpIneg).Var(classfile.OpIstore, 1)
	b.Line(52).Op(classfile.OpIconst1).Var(classfile.OpIstore, 2)
	b.Line(53).Var(classfile.OpIload, 2).Op(classfile.OpIneg).Var(classfile.OpIstore, 3)
	b.Line(54).Var(classfile.OpIload, 3).Int(classfile.OpBipush, 42).Op(classfile.OpIadd).Var(classfile.OpIstore, 4)
	b.Line(55).LdcString("123").Var(classfile.OpAstore, 5)
	b.Line(56).Var(classfile.OpAload, 5).
		Invoke(classfile.OpInvokestatic, "java/lang/Integer", "parseInt", "(Ljava/lang/String;)I").
		Var(classfile.OpIstore, 6)
	b.Line(57).Var(classfile.OpAload, 5).
		Invoke(classfile.OpInvokevirtual, "java/lang/String", "length", "()I").
		Var(classfile.OpIstore, 7)
	b.Line(58).LdcString("com.example.MySpi").Var(classfile.OpAstore, 8)
	b.Line(59).Var(classfile.OpAload, 8).
		Invoke(classfile.OpInvokestatic, "java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;").
		Var(classfile.OpAstore, 9)
	b.Line(60).Var(classfile.OpAload, 9).
		Invoke(classfile.OpInvokevirtual, "java/lang/Class", "getName", "()Ljava/lang/String;").
		Var(classfile.OpAstore, 10)
	b.Line(61).Op(classfile.OpReturn)
	b.Mark(end)

	locals := []struct {
		name, desc string
	}{
		{"a", "I"}, {"a_", "I"}, {"b", "I"}, {"b_", "I"}, {"b__", "I"},
		{"s", "Ljava/lang/String;"}, {"s_", "I"}, {"s__", "I"},
		{"c", "Ljava/lang/String;"}, {"c_", "Ljava/lang/Class;"}, {"c__", "Ljava/lang/String;"},
	}
	for slot, lv := range locals {
		b.Local(lv.name, lv.desc, start, end, slot)
	}
	return b.Build()
}

// buildHalver builds:
//
//	static void test2(long l) {
//	    int i = (int) (l / 2);   // 71
//	}                            // 72
func buildHalver() *classfile.Method {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "test2", "(J)V")
	start, end := b.NewLabel(), b.NewLabel()
	b.Mark(start)
	b.Line(71).Var(classfile.OpLload, 0).LdcLong(2).Op(classfile.OpLdiv).Op(classfile.OpL2i).Var(classfile.OpIstore, 2)
	b.Line(72).Op(classfile.OpReturn)
	b.Mark(end)
	b.Local("l", "J", start, end, 0)
	b.Local("i", "I", start, end, 2)
	return b.Build()
}

// buildCaller builds a static no-arg method that calls test2(value).
func buildCaller(name string, value int64) *classfile.Method {
	b := classfile.NewMethodBuilder(classfile.AccStatic, name, "()V")
	b.LdcLong(value).
		Invoke(classfile.OpInvokestatic, fixtureOwner, "test2", "(J)V").
		Op(classfile.OpReturn)
	return b.Build()
}

// buildRecursive builds:
//
//	static void rec(int n) {
//	    int k = n;     // 81
//	    rec(k);        // 82
//	}
func buildRecursive() *classfile.Method {
	b := classfile.NewMethodBuilder(classfile.AccStatic, "rec", "(I)V")
	start, end := b.NewLabel(), b.NewLabel()
	b.Mark(start)
	b.Line(81).Var(classfile.OpIload, 0).Var(classfile.OpIstore, 1)
	b.Line(82).Var(classfile.OpIload, 1).
		Invoke(classfile.OpInvokestatic, fixtureOwner, "rec", "(I)V")
	b.Op(classfile.OpReturn)
	b.Mark(end)
	b.Local("n", "I", start, end, 0)
	b.Local("k", "I", start, end, 1)
	return b.Build()
}

func fixturePool(methods ...*classfile.Method) *classfile.Pool {
	pool := classfile.NewPool()
	pool.Add("app", classfile.NewClass(classfile.AccPublic, fixtureOwner, methods...))
	return pool
}
