package scripttest_test

import (
	"testing"

	"github.com/cmarrin/m8rscript/internal/scripttest"
)

func TestEndToEnd(t *testing.T) {
	scenarios := scripttest.LoadScenarios(t, "testdata/e2e.yaml")
	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			scripttest.Run(t, sc)
		})
	}
}
