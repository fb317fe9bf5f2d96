package jamf

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/ubuntu/decorate"
)

// osVersionCriterion is the smart group criterion matching computers by installed OS.
const osVersionCriterion = "Operating System Version"

type smartGroup struct {
	XMLName  xml.Name `xml:"computer_group"`
	IsSmart  bool     `xml:"is_smart"`
	Criteria criteria `xml:"criteria"`
}

type criteria struct {
	Size      int         `xml:"size"`
	Criterion []criterion `xml:"criterion"`
}

type criterion struct {
	Name       string `xml:"name"`
	Priority   int    `xml:"priority"`
	AndOr      string `xml:"and_or"`
	SearchType string `xml:"search_type"`
	Value      string `xml:"value"`
}

// SmartGroupPayload returns the body sent by UpdateSmartGroup.
func SmartGroupPayload(targetVersion string) ([]byte, error) {
	g := smartGroup{
		IsSmart: true,
		Criteria: criteria{
			Size: 1,
			Criterion: []criterion{{
				Name:       osVersionCriterion,
				Priority:   0,
				AndOr:      "and",
				SearchType: "less than",
				Value:      targetVersion,
			}},
		},
	}
	data, err := xml.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal smart group: %v", err)
	}
	return data, nil
}

// UpdateSmartGroup makes the smart group groupID match every computer running an OS older than
// targetVersion.
func (c Client) UpdateSmartGroup(ctx context.Context, groupID int, targetVersion string) (err error) {
	defer decorate.OnError(&err, "failed to update smart group %d", groupID)

	data, err := SmartGroupPayload(targetVersion)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/JSSResource/computergroups/id/%d", groupID)
	_, err = c.do(ctx, "update smart group", http.MethodPut, path, "application/xml", data)
	return err
}
