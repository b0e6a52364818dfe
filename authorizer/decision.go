package authorizer

const (
	// PolicyVersion is the policy language version carried by every decision
	PolicyVersion = "2012-10-17"
	// InvokeAction is the single action a decision grants or denies
	InvokeAction = "execute-api:Invoke"
	// DenyPrincipal is the principal reported when verification fails
	DenyPrincipal = "user"
)

// Effect is the outcome of an authorization decision
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Decision is the policy document returned to the API gateway
type Decision struct {
	PrincipalID    string         `json:"principalId"`
	PolicyDocument PolicyDocument `json:"policyDocument"`
}

// PolicyDocument holds the decision statements
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement grants or denies invoke on every resource
type Statement struct {
	Action   string `json:"Action"`
	Effect   Effect `json:"Effect"`
	Resource string `json:"Resource"`
}

// Allow returns a decision granting invoke to principalID
func Allow(principalID string) *Decision {
	return newDecision(principalID, EffectAllow)
}

// Deny returns a decision denying invoke
func Deny() *Decision {
	return newDecision(DenyPrincipal, EffectDeny)
}

// Effect returns the effect of the decision's only statement
func (d *Decision) Effect() Effect {
	if d == nil || len(d.PolicyDocument.Statement) == 0 {
		return EffectDeny
	}
	return d.PolicyDocument.Statement[0].Effect
}

func newDecision(principalID string, effect Effect) *Decision {
	return &Decision{
		PrincipalID: principalID,
		PolicyDocument: PolicyDocument{
			Version: PolicyVersion,
			Statement: []Statement{
				{Action: InvokeAction, Effect: effect, Resource: "*"},
			},
		},
	}
}

// TokenRequest is the gateway's token authorizer event
type TokenRequest struct {
	Type               string `json:"type"`
	AuthorizationToken string `json:"authorizationToken"`
	MethodArn          string `json:"methodArn"`
}
