package observability

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// TraceDynamoDBOperation wraps one table call in a subsegment. Outside a
// sampled request (background autosaves, tests) there is no parent
// segment and the call runs untraced.
func TraceDynamoDBOperation(ctx context.Context, operation, tableName string, fn func(context.Context) error) error {
	if xray.GetSegment(ctx) == nil {
		return fn(ctx)
	}

	subCtx, seg := xray.BeginSubsegment(ctx, fmt.Sprintf("DynamoDB.%s", operation))
	if seg == nil {
		return fn(ctx)
	}
	seg.AddAnnotation("table", tableName)

	err := fn(subCtx)
	seg.Close(err)
	return err
}
