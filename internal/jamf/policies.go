package jamf

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/ubuntu/decorate"
)

// Group is a computer group a policy is scoped to. Jamf Pro resolves groups by ID, Name is informative.
type Group struct {
	ID   int    `xml:"id"`
	Name string `xml:"name,omitempty"`
}

type policy struct {
	XMLName xml.Name    `xml:"policy"`
	Scope   policyScope `xml:"scope"`
}

type policyScope struct {
	ComputerGroups []Group `xml:"computer_groups>computer_group"`
}

// PolicyScopePayload returns the body sent by UpdatePolicyScope.
func PolicyScopePayload(groups []Group) ([]byte, error) {
	data, err := xml.Marshal(policy{Scope: policyScope{ComputerGroups: groups}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy scope: %v", err)
	}
	return data, nil
}

// UpdatePolicyScope replaces the computer groups policyID is scoped to.
func (c Client) UpdatePolicyScope(ctx context.Context, policyID int, groups []Group) (err error) {
	defer decorate.OnError(&err, "failed to update scope of policy %d", policyID)

	data, err := PolicyScopePayload(groups)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/JSSResource/policies/id/%d", policyID)
	_, err = c.do(ctx, "update policy scope", http.MethodPut, path, "application/xml", data)
	return err
}
