package product

import (
	"github.com/fekuna/omnipos-catalog-sync/internal/database"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

// MatchKey identifies the remote counterpart of a local row. A non-zero
// ProductID scopes variant lookups to one local product.
type MatchKey struct {
	RemoteKeyID string
	SKU         *string
	ProductID   int64
}

// MatchRule turns a key into a where clause. ok is false when the key lacks
// what the rule needs.
type MatchRule struct {
	Name  string
	Build func(key MatchKey) (where database.Where, ok bool)
}

const (
	RuleRemoteKey = "remote_key"
	RuleSKU       = "sku"
)

var ByRemoteKey = MatchRule{
	Name: RuleRemoteKey,
	Build: func(key MatchKey) (database.Where, bool) {
		if key.RemoteKeyID == "" {
			return database.Where{}, false
		}
		return key.scope(database.Eq("remote_key_id", key.RemoteKeyID)), true
	},
}

// BySKU matches on sku. Scoped to a product, any row with the sku matches;
// unscoped, only rows not yet linked to a remote record do.
var BySKU = MatchRule{
	Name: RuleSKU,
	Build: func(key MatchKey) (database.Where, bool) {
		if !model.ValidSKU(key.SKU) {
			return database.Where{}, false
		}
		where := database.Eq("sku", *key.SKU)
		if key.ProductID == 0 {
			return where.And(database.Raw("remote_key_id IS NULL OR remote_key_id = ''")), true
		}
		return key.scope(where), true
	},
}

func (k MatchKey) scope(where database.Where) database.Where {
	if k.ProductID == 0 {
		return where
	}
	return where.And(database.Eq("product_id", k.ProductID))
}

// Matcher applies its rules in order.
type Matcher struct {
	Rules []MatchRule
}

func NewMatcher() Matcher {
	return Matcher{Rules: []MatchRule{ByRemoteKey, BySKU}}
}

// Resolve calls try with each applicable rule's clause until try reports a
// hit, and returns that rule's name. It returns "" when no rule hit.
func (m Matcher) Resolve(key MatchKey, try func(where database.Where) (bool, error)) (string, error) {
	for _, rule := range m.Rules {
		where, ok := rule.Build(key)
		if !ok {
			continue
		}
		hit, err := try(where)
		if err != nil {
			return "", err
		}
		if hit {
			return rule.Name, nil
		}
	}
	return "", nil
}
