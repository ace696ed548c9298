package dynamo

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// timeLayout is fixed width so stored timestamps compare correctly as
// strings in filters and sort keys. RFC3339Nano trims trailing zeros and
// would put "...:00.5Z" before "...:00Z". The default decoder still parses it.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func timeValue(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(timeLayout)}
}

// normalizeTimes rewrites the named string attributes of a marshalled item
// into timeLayout. Absent attributes are left alone.
func normalizeTimes(item map[string]types.AttributeValue, fields ...string) error {
	for _, f := range fields {
		s, ok := item[f].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, s.Value)
		if err != nil {
			return fmt.Errorf("field %s: %w", f, err)
		}
		item[f] = timeValue(t)
	}
	return nil
}
