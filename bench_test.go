package pta

import (
	"fmt"
	"testing"

	"github.com/ptago/pta/ir"
)

// chainProgram builds a call chain of depth n threading an object through
// parameters and returns.
func chainProgram(n int) *ir.Program {
	p := ir.NewProgram()
	c := p.NewClass("C", nil)

	for i := 0; i < n; i++ {
		m := c.NewStaticMethod(fmt.Sprintf("f%d(Object)", i), "Object")
		v := m.NewParam("v")
		if i+1 < n {
			r := m.NewVar("r")
			m.NewCall(ir.Static, r, nil,
				ir.MethodRef{Class: c, Sig: fmt.Sprintf("f%d(Object)", i+1)}, v)
			m.Return(r)
		} else {
			m.Return(v)
		}
	}

	main := c.NewStaticMethod("main()", "")
	o := main.NewVar("o")
	x := main.NewVar("x")
	main.NewAlloc(o, "Object")
	main.NewCall(ir.Static, x, nil, ir.MethodRef{Class: c, Sig: "f0(Object)"}, o)
	p.SetEntry(main)
	return p
}

func BenchmarkAnalyzeChain(b *testing.B) {
	for _, depth := range []int{10, 100, 1000} {
		b.Run(fmt.Sprint(depth), func(b *testing.B) {
			p := chainProgram(depth)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Analyze(AnalysisConfig{Program: p}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkAnalyzeChainKCall(b *testing.B) {
	p := chainProgram(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Analyze(AnalysisConfig{
			Program:  p,
			Selector: NewKCallSelector(2, 1),
		}); err != nil {
			b.Fatal(err)
		}
	}
}
