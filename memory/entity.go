package memory

import (
	"encoding/json"
	"regexp"
	"sort"
	"time"
)

// EntityType is a canonicalized entity kind, per spec.md §4.4's fixed
// registry.
type EntityType string

const (
	EntityTopic    EntityType = "topic"
	EntityToken    EntityType = "token"
	EntityAccount  EntityType = "account"
	EntityContract EntityType = "contract"
	EntityFile     EntityType = "file"
	EntitySchedule EntityType = "schedule"
)

// canonicalEntityTypes maps the registry's id-suffix convention
// (topicId, tokenId, accountId, contractId, fileId, scheduleId) to its
// canonical type name.
var canonicalEntityTypes = map[string]EntityType{
	"topicId":    EntityTopic,
	"tokenId":    EntityToken,
	"accountId":  EntityAccount,
	"contractId": EntityContract,
	"fileId":     EntityFile,
	"scheduleId": EntitySchedule,
}

// CanonicalEntityType resolves a loosely-named id-field key to its
// canonical EntityType, returning ("", false) for unknown keys.
func CanonicalEntityType(idFieldName string) (EntityType, bool) {
	t, ok := canonicalEntityTypes[idFieldName]
	return t, ok
}

// EntityAssociation links a chain entity id to a user-visible name and
// canonical type, per spec.md §3/§4.4.
type EntityAssociation struct {
	EntityID      string     `json:"entityId"`
	EntityName    string     `json:"entityName"`
	EntityType    EntityType `json:"entityType"`
	CreatedAt     time.Time  `json:"createdAt"`
	TransactionID string     `json:"transactionId,omitempty"`
	SessionID     string     `json:"sessionId,omitempty"`
}

var exactEntityIDPattern = regexp.MustCompile(`^0\.0\.\d+$`)

// entityAssociationMarker distinguishes a serialized entity-association
// system record from ordinary stored messages.
const entityAssociationMarker = "__entity_association__"

func marshalEntityAssociation(a EntityAssociation) (string, error) {
	data, err := json.Marshal(struct {
		Marker string `json:"marker"`
		EntityAssociation
	}{Marker: entityAssociationMarker, EntityAssociation: a})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func tryUnmarshalEntityAssociation(content string) (EntityAssociation, bool) {
	var wrapper struct {
		Marker string `json:"marker"`
		EntityAssociation
	}
	if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
		return EntityAssociation{}, false
	}
	if wrapper.Marker != entityAssociationMarker {
		return EntityAssociation{}, false
	}
	return wrapper.EntityAssociation, true
}

// dedupeAssociationsMostRecentWins implements the Open Question resolution
// recorded in DESIGN.md: duplicate entityId records deduplicate
// most-recent-wins, preferring a record carrying a transaction id when
// timestamps tie.
func dedupeAssociationsMostRecentWins(all []EntityAssociation) []EntityAssociation {
	byID := map[string]EntityAssociation{}
	for _, a := range all {
		existing, ok := byID[a.EntityID]
		if !ok {
			byID[a.EntityID] = a
			continue
		}
		if a.CreatedAt.After(existing.CreatedAt) {
			byID[a.EntityID] = a
			continue
		}
		if a.CreatedAt.Equal(existing.CreatedAt) && a.TransactionID != "" && existing.TransactionID == "" {
			byID[a.EntityID] = a
		}
	}
	out := make([]EntityAssociation, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
