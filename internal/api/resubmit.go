package api

import (
	"context"
	"errors"
)

// resubmitMutation re-triggers processing of one flow execution.
const resubmitMutation = `mutation doResend($input: FlowExecutionIDInput!) {
  resubmitFlowExecution(input: $input) {
    resubmitted
    message
  }
}`

type resubmitData struct {
	ResubmitFlowExecution *Outcome `json:"resubmitFlowExecution"`
}

// Resubmit invokes the resubmit mutation for one invocation UUID and
// classifies the result three ways:
//
//   - transport failure: returned as an error (TransportError or AuthError);
//     the caller must abort the run.
//   - application failure: returned as an Outcome with Resubmitted=false and
//     the portal's reason in Message. A GraphQL errors payload on the
//     mutation counts as an application failure, since the request was
//     delivered and the portal answered.
//   - success: Outcome with Resubmitted=true.
func (c *Client) Resubmit(ctx context.Context, invocationUUID string) (Outcome, error) {
	variables := map[string]any{
		"input": map[string]any{
			"invocation_uuid": invocationUUID,
		},
	}

	var data resubmitData
	err := c.do(ctx, "resubmit", resubmitMutation, variables, &data)
	if err != nil {
		var ge *GraphQLError
		if errors.As(err, &ge) {
			return Outcome{Resubmitted: false, Message: string(ge.Errors)}, nil
		}
		return Outcome{}, err
	}

	if data.ResubmitFlowExecution == nil {
		// The portal answered without the expected payload. Treat as an
		// application failure rather than inventing a success.
		return Outcome{Resubmitted: false, Message: "response missing resubmitFlowExecution payload"}, nil
	}
	return *data.ResubmitFlowExecution, nil
}
