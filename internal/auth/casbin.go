package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	casbinbunadapter "github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth/bunadapter"
	"github.com/uptrace/bun"
)

//go:embed model.conf
var casbinModelContent string

// InitEnforcer creates and initializes a Casbin enforcer with embedded model and database adapter
// The Bun adapter shares the existing *bun.DB connection pool
func InitEnforcer(db *bun.DB) (casbin.IEnforcer, error) {
	// Create Bun adapter with existing *bun.DB instance
	adapter, err := casbinbunadapter.NewAdapter(db)
	if err != nil {
		return nil, fmt.Errorf("create casbin adapter: %w", err)
	}

	// Load RBAC model from embedded string
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	// Create enforcer with model and adapter
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	// Register custom matcher functions: bexprMatch for scoped policies,
	// capMatch for capability wildcards
	enforcer.AddFunction("bexprMatch", BexprMatchFunction())
	enforcer.AddFunction("capMatch", CapMatchFunction())

	// Load policies from database
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}

	return enforcer, nil
}

// NewMemoryEnforcer creates an enforcer backed by no storage. Policies must
// be added by the caller via AddPolicy/AddGroupingPolicy.
func NewMemoryEnforcer() (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	enforcer.AddFunction("bexprMatch", BexprMatchFunction())
	enforcer.AddFunction("capMatch", CapMatchFunction())
	return enforcer, nil
}
