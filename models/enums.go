package models

// GlobalRole partitions every account into one of two consoles:
// administrators manage the register; MDA officers record collections.
type GlobalRole string

const (
	GlobalRoleAdmin   GlobalRole = "admin"
	GlobalRoleMdaUser GlobalRole = "mda_user"
)

func (r GlobalRole) Valid() bool {
	return r == GlobalRoleAdmin || r == GlobalRoleMdaUser
}

// History action types.
const (
	ActionTypeCreate   = "*CREATE*"
	ActionTypeUpdate   = "*UPDATE*"
	ActionTypeDelete   = "*DELETE*"
	ActionTypeActive   = "*ACTIVE*"
	ActionTypeInactive = "*INACTIVE*"
)

// Reference types recorded on history rows.
const (
	ReferenceTypeMda            = "mdas"
	ReferenceTypeMdaBranch      = "mda_branches"
	ReferenceTypeProfile        = "profiles"
	ReferenceTypeRevenueSource  = "revenue_sources"
	ReferenceTypeSourceBudget   = "revenue_source_budgets"
	ReferenceTypeMdaBudget      = "mda_budgets"
	ReferenceTypeDailyEntry     = "revenue_daily_entries"
	ReferenceTypeMonthlySummary = "monthly_summaries"
)
