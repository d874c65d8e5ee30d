package machine_test

import (
	"context"
	"testing"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/parser"
	"github.com/cmarrin/m8rscript/lang/value"
	"github.com/stretchr/testify/require"
)

// run parses and runs src to completion with a generous fuel budget,
// returning the thread (for global inspection) and its final status.
func run(t *testing.T, src string) (*machine.Thread, machine.Status) {
	t.Helper()
	atoms := atom.NewTable()
	fn, err := parser.Parse([]byte(src), atoms)
	require.NoError(t, err)

	global := object.NewMaterObject(atoms)
	// Stand-in for lang/builtin (not yet wired here): every function body
	// can reference the free identifier `arguments`.
	require.NoError(t, global.SetAttr("arguments", value.ArgumentsMarker{}))
	th := machine.NewThread(object.NewHeap(0), atoms, global)
	require.NoError(t, th.StartExecution(fn))

	status, err := th.Continue(context.Background(), 100000)
	require.NoError(t, err)
	return th, status
}

func globalAttr(t *testing.T, th *machine.Thread, name string) value.Value {
	t.Helper()
	v, err := th.Global.Attr(name)
	require.NoError(t, err)
	return v
}

func TestArithmeticAssignsToImplicitGlobal(t *testing.T) {
	th, status := run(t, "x = 1 + 2 * 3;")
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(7), globalAttr(t, th, "x"))
}

func TestIfElseBranches(t *testing.T) {
	th, status := run(t, `
		var n = 4;
		if (n > 10) {
			result = 1;
		} else if (n > 2) {
			result = 2;
		} else {
			result = 3;
		}
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(2), globalAttr(t, th, "result"))
}

func TestWhileLoopAccumulates(t *testing.T) {
	th, status := run(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		total = sum;
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(10), globalAttr(t, th, "total"))
}

func TestFunctionCallAndReturn(t *testing.T) {
	th, status := run(t, `
		function add(a, b) {
			return a + b;
		}
		x = add(2, 3);
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(5), globalAttr(t, th, "x"))
}

func TestClosureCapturesUpvalueAcrossCalls(t *testing.T) {
	th, status := run(t, `
		function counter() {
			var n = 0;
			return function() {
				n = n + 1;
				return n;
			};
		}
		c = counter();
		first = c();
		second = c();
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(1), globalAttr(t, th, "first"))
	require.Equal(t, value.Int(2), globalAttr(t, th, "second"))
}

func TestArrayLiteralAndIndexing(t *testing.T) {
	th, status := run(t, `
		var arr = [10, 20, 30];
		arr[1] = 99;
		first = arr[0];
		mid = arr[1];
		len = arr.length;
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(10), globalAttr(t, th, "first"))
	require.Equal(t, value.Int(99), globalAttr(t, th, "mid"))
	require.Equal(t, value.Int(3), globalAttr(t, th, "len"))
}

func TestObjectLiteralPropertyAccess(t *testing.T) {
	th, status := run(t, `
		var obj = { a: 1, b: 2 };
		obj.c = 3;
		x = obj.a + obj.b + obj.c;
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(6), globalAttr(t, th, "x"))
}

func TestDeletePropertyRemovesIt(t *testing.T) {
	th, status := run(t, `
		var obj = { a: 1 };
		delete obj.a;
		found = obj.a;
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Undefined{}, globalAttr(t, th, "found"))
}

func TestSwitchWithDefault(t *testing.T) {
	th, status := run(t, `
		var n = 2;
		switch (n) {
		case 1:
			result = 10;
			break;
		case 2:
			result = 20;
			break;
		default:
			result = 99;
		}
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(20), globalAttr(t, th, "result"))
}

func TestClassInstanceConstructorAndMethod(t *testing.T) {
	th, status := run(t, `
		class Point {
			constructor(x, y) {
				this.x = x;
				this.y = y;
			}
			sum() {
				return this.x + this.y;
			}
		}
		p = new Point(3, 4);
		total = p.sum();
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(7), globalAttr(t, th, "total"))
}

func TestArgumentsBuiltinSynthesizesArray(t *testing.T) {
	th, status := run(t, `
		function variadicCount() {
			return arguments().length;
		}
		n = variadicCount(1, 2, 3, 4);
	`)
	require.Equal(t, machine.StatusFinished, status)
	require.Equal(t, value.Int(4), globalAttr(t, th, "n"))
}

func TestDivisionByZeroReportsRuntimeError(t *testing.T) {
	atoms := atom.NewTable()
	fn, err := parser.Parse([]byte("x = 1 / 0;"), atoms)
	require.NoError(t, err)

	global := object.NewMaterObject(atoms)
	th := machine.NewThread(object.NewHeap(0), atoms, global)
	require.NoError(t, th.StartExecution(fn))

	status, err := th.Continue(context.Background(), 1000)
	if status == machine.StatusError {
		require.Error(t, err)
	} else {
		require.Equal(t, machine.StatusFinished, status)
	}
}

func TestFireEventDeliveredAfterMainProgramIdles(t *testing.T) {
	th, status := run(t, `
		counter = 0;
		bump = function() { counter = counter + 1; };
	`)
	require.Equal(t, machine.StatusFinished, status)

	bump := globalAttr(t, th, "bump")
	th.FireEvent(machine.Event{Callable: bump, This: value.Undefined{}})
	th.FireEvent(machine.Event{Callable: bump, This: value.Undefined{}})

	status, err := th.Continue(context.Background(), 100000)
	require.NoError(t, err)
	require.Equal(t, machine.StatusNotRunning, status)
	require.Equal(t, value.Int(2), globalAttr(t, th, "counter"))
}

func TestRequestTerminationUnwinds(t *testing.T) {
	atoms := atom.NewTable()
	fn, err := parser.Parse([]byte("var i = 0; while (1) { i = i + 1; }"), atoms)
	require.NoError(t, err)

	global := object.NewMaterObject(atoms)
	th := machine.NewThread(object.NewHeap(0), atoms, global)
	require.NoError(t, th.StartExecution(fn))

	status, err := th.Continue(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, machine.StatusYield, status)

	th.RequestTermination()
	status, err = th.Continue(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, machine.StatusTerminated, status)
}

func TestFuelExhaustionYieldsAndResumes(t *testing.T) {
	atoms := atom.NewTable()
	fn, err := parser.Parse([]byte(`
		var i = 0;
		var sum = 0;
		while (i < 1000) {
			sum = sum + i;
			i = i + 1;
		}
		total = sum;
	`), atoms)
	require.NoError(t, err)

	global := object.NewMaterObject(atoms)
	th := machine.NewThread(object.NewHeap(0), atoms, global)
	require.NoError(t, th.StartExecution(fn))

	status, err := th.Continue(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, machine.StatusYield, status)

	for status == machine.StatusYield {
		status, err = th.Continue(context.Background(), 5)
		require.NoError(t, err)
	}
	require.Equal(t, machine.StatusFinished, status)

	v, err := global.Attr("total")
	require.NoError(t, err)
	require.Equal(t, value.Int(499500), v)
}
