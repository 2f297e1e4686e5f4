package flag

import (
	"os"
	"strconv"
	"strings"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// Compile-time check: Env implements domain.FlagSource.
var _ domain.FlagSource = (*Env)(nil)

// Env reads feature flags from environment variables. A flag named
// "work_order_auto_assign" maps to FEATURE_WORK_ORDER_AUTO_ASSIGN.
// Flags default to off; the variable must hold a value strconv.ParseBool
// accepts ("1", "true", ...).
type Env struct {
	prefix string
}

// NewEnv creates a flag source with the standard FEATURE_ prefix.
func NewEnv() *Env {
	return &Env{prefix: "FEATURE_"}
}

func (e *Env) IsEnabled(name string) bool {
	v := os.Getenv(e.prefix + strings.ToUpper(name))
	if v == "" {
		return false
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return enabled
}
