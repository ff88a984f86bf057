package perm

// DefaultCostFields lists the cost-bearing column names redacted when no
// explicit set is supplied. Callers with differently named columns pass
// their own set to FilterFinancial.
var DefaultCostFields = []string{
	"unit_cost",
	"total_cost",
	"budget",
	"actual_cost",
	"unit_price",
	"total_price",
}

// FilterFinancial strips cost-bearing fields from serializable records
// when the value lacks ViewFinancialData. Fields are removed, not nulled,
// so the serialized payload carries no trace and a client cannot tell
// "zero cost" from "redacted". Records are copied; inputs are never
// mutated. A requested field that is absent from a record is a no-op.
func FilterFinancial(records []map[string]any, v Value, costFields []string) []map[string]any {
	if CanViewCosts(v) {
		return records
	}
	if costFields == nil {
		costFields = DefaultCostFields
	}
	redacted := make([]map[string]any, len(records))
	for i, record := range records {
		clean := make(map[string]any, len(record))
		for key, val := range record {
			clean[key] = val
		}
		for _, field := range costFields {
			delete(clean, field)
		}
		redacted[i] = clean
	}
	return redacted
}

// RedactRecord applies the same rule to a single record.
func RedactRecord(record map[string]any, v Value, costFields []string) map[string]any {
	out := FilterFinancial([]map[string]any{record}, v, costFields)
	return out[0]
}
