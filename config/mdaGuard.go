package config

import (
	"context"
	"strings"

	"github.com/ktirsdata/ntr_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MdaGuardPlugin enforces MDA-scope isolation for officer requests by
// automatically scoping queries/updates/deletes to the request's mda_id when
// the model has an mda_id column.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include mda_id manually.
// - Admin bypass is explicit via the IsAdmin context flag.
type MdaGuardPlugin struct{}

func NewMdaGuardPlugin() *MdaGuardPlugin { return &MdaGuardPlugin{} }

func (p *MdaGuardPlugin) Name() string { return "mda_guard" }

func (p *MdaGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("mda_guard:query", mdaGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("mda_guard:row", mdaGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("mda_guard:update", mdaGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("mda_guard:delete", mdaGuardCallback); err != nil {
		return err
	}
	return nil
}

func mdaGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassMdaScope(ctx) {
		return
	}
	mdaId := mdaIdFromContext(ctx)
	if mdaId == 0 {
		return
	}

	// Only apply if the current model/table includes an mda_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasMdaId := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "mda_id") {
			hasMdaId = true
			break
		}
	}
	if !hasMdaId {
		return
	}

	// Don't duplicate an explicit scope filter.
	if whereHasMdaId(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "mda_id"},
				Value:  mdaId,
			},
		},
	})
}

func mdaIdFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(appctx.ContextKeyMdaId).(int); ok && v > 0 {
		return v
	}
	return 0
}

func shouldBypassMdaScope(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeyIsAdmin).(bool); ok && v {
		return true
	}
	return false
}

func whereHasMdaId(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasMdaId(e) {
			return true
		}
	}
	return false
}

func exprHasMdaId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsMdaId(v.Column)
	case clause.Neq:
		return colIsMdaId(v.Column)
	case clause.Gt:
		return colIsMdaId(v.Column)
	case clause.Gte:
		return colIsMdaId(v.Column)
	case clause.Lt:
		return colIsMdaId(v.Column)
	case clause.Lte:
		return colIsMdaId(v.Column)
	case clause.IN:
		return colIsMdaId(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasMdaId(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasMdaId(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "mda_id")
	default:
		return false
	}
}

func colIsMdaId(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "mda_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "mda_id")
	default:
		return false
	}
}
