package usecase

import (
	"os"
	"testing"

	"github.com/user/rank-tracker/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}
