package jamf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/ubuntu/decorate"
)

// LocalDateTimeLayout is the layout of forced install dates. They are applied in the device local time.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

const plansPath = "/api/v1/managed-software-updates/plans/group"

type planRequest struct {
	Group  planGroup  `json:"group"`
	Config planConfig `json:"config"`
}

type planGroup struct {
	ObjectType string `json:"objectType"`
	GroupID    string `json:"groupId"`
}

type planConfig struct {
	UpdateAction              string `json:"updateAction"`
	VersionType               string `json:"versionType"`
	SpecificVersion           string `json:"specificVersion"`
	ForceInstallLocalDateTime string `json:"forceInstallLocalDateTime"`
}

// UpdatePlanPayload returns the body sent by CreateUpdatePlan.
func UpdatePlanPayload(groupID int, targetVersion string, deadline time.Time) ([]byte, error) {
	p := planRequest{
		Group: planGroup{
			ObjectType: "COMPUTER_GROUP",
			GroupID:    strconv.Itoa(groupID),
		},
		Config: planConfig{
			UpdateAction:              "DOWNLOAD_INSTALL_SCHEDULE",
			VersionType:               "SPECIFIC_VERSION",
			SpecificVersion:           targetVersion,
			ForceInstallLocalDateTime: deadline.Format(LocalDateTimeLayout),
		},
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update plan: %v", err)
	}
	return data, nil
}

// CreateUpdatePlan schedules targetVersion on the computers of groupID, forcing the install at deadline.
// It returns the IDs of the plans created by Jamf Pro, one per device.
func (c Client) CreateUpdatePlan(ctx context.Context, groupID int, targetVersion string, deadline time.Time) (planIDs []string, err error) {
	defer decorate.OnError(&err, "failed to create update plan for group %d", groupID)

	data, err := UpdatePlanPayload(groupID, targetVersion, deadline)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "create update plan", http.MethodPost, plansPath, "application/json", data)
	if err != nil {
		return nil, err
	}

	for _, id := range gjson.GetBytes(resp, "plans.#.planId").Array() {
		planIDs = append(planIDs, id.String())
	}
	c.log.Info("Created update plans", "group", groupID, "version", targetVersion, "plans", len(planIDs))
	return planIDs, nil
}
