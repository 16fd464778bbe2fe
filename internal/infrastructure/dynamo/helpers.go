package dynamo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jerif/verification-api/internal/domain"
)

// Attribute names used in expressions across repos.
const (
	fieldID             = "id"
	fieldVerificationID = "verification_id"
	fieldStatus         = "status"
	fieldUsedAt         = "used_at"
	fieldResultStatus   = "result_status"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// expr is a rendered expression with its placeholder maps.
type expr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are emitted in sorted order so the output is deterministic.
func buildUpdateExpr(updates map[string]any) (expr, error) {
	if len(updates) == 0 {
		return expr{}, errors.New("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := expr{
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return expr{}, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		parts = append(parts, nameKey+" = "+valueKey)
	}
	ue.Expr = "SET " + strings.Join(parts, ", ")
	return ue, nil
}

// buildVerificationFilter renders a scan filter for f. ok is false when f
// selects everything.
func buildVerificationFilter(f domain.VerificationFilter) (fe expr, ok bool) {
	var conds []string
	fe.Names = map[string]string{}
	fe.Values = map[string]types.AttributeValue{}
	if f.Status != "" {
		fe.Names["#rs"] = fieldResultStatus
		fe.Values[":rs"] = str(string(f.Status))
		conds = append(conds, "#rs = :rs")
	}
	if f.Search != "" {
		fe.Names["#vid"] = fieldVerificationID
		fe.Values[":q"] = str(f.Search)
		conds = append(conds, "contains(#vid, :q)")
	}
	if len(conds) == 0 {
		return expr{}, false
	}
	fe.Expr = strings.Join(conds, " AND ")
	return fe, true
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
