package ils

import (
	"context"
	"fmt"
	"log"
	"net/url"
)

// CodeValue is Alma's {"value": "..."} wrapper.
type CodeValue struct {
	Value string `json:"value"`
}

// Set is the subset of the Alma set object these operations touch.
type Set struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        CodeValue  `json:"type"`
	Content     CodeValue  `json:"content"`
	Private     CodeValue  `json:"private"`
	Status      CodeValue  `json:"status"`
	Note        string     `json:"note"`
	Query       *CodeValue `json:"query,omitempty"`
	Members     *Members   `json:"members,omitempty"`
	Origin      CodeValue  `json:"origin"`
	MemberCount *CodeValue `json:"number_of_members,omitempty"`
}

// Members carries set membership on add_members calls.
type Members struct {
	TotalRecordCount string   `json:"total_record_count"`
	Member           []Member `json:"member"`
}

// Member identifies one set member.
type Member struct {
	ID string `json:"id"`
}

// CreateSet creates an empty itemized physical-item set and returns it
// with the server-assigned ID.
func (c *Client) CreateSet(ctx context.Context, name, description, note string) (*Set, error) {
	body := Set{
		Name:        name,
		Description: description,
		Type:        CodeValue{Value: "ITEMIZED"},
		Content:     CodeValue{Value: "ITEM"},
		Private:     CodeValue{Value: "false"},
		Status:      CodeValue{Value: "ACTIVE"},
		Note:        note,
		Origin:      CodeValue{Value: "UI"},
	}

	params := url.Values{}
	params.Set("combine", "None")
	params.Set("set1", "None")
	params.Set("set2", "None")

	var created Set
	if err := c.do(ctx, "POST", "/conf/sets", params, body, &created); err != nil {
		return nil, fmt.Errorf("creating set %q: %w", name, err)
	}
	log.Printf("created set %q with id %s", name, created.ID)
	return &created, nil
}

// GetSet retrieves a set by ID.
func (c *Client) GetSet(ctx context.Context, setID string) (*Set, error) {
	var set Set
	if err := c.do(ctx, "GET", "/conf/sets/"+setID, nil, nil, &set); err != nil {
		return nil, fmt.Errorf("retrieving set %s: %w", setID, err)
	}
	return &set, nil
}

// AddMembers adds the given IDs to an existing set, chunking calls at the
// Alma per-request limit. idType is the identifier scheme, e.g. "BARCODE"
// or "MMS_ID". The set is re-fetched first because add_members requires
// the full set object back.
func (c *Client) AddMembers(ctx context.Context, setID string, ids []string, idType string) error {
	current, err := c.GetSet(ctx, setID)
	if err != nil {
		return err
	}

	for start := 0; start < len(ids); start += maxMembersPerCall {
		end := min(start+maxMembersPerCall, len(ids))
		chunk := ids[start:end]

		members := make([]Member, len(chunk))
		for i, id := range chunk {
			members[i] = Member{ID: id}
		}

		body := Set{
			Name:        current.Name,
			Description: current.Description,
			Type:        CodeValue{Value: "ITEMIZED"},
			Content:     CodeValue{Value: "ITEM"},
			Private:     CodeValue{Value: "false"},
			Status:      CodeValue{Value: "ACTIVE"},
			Note:        current.Note,
			Query:       &CodeValue{},
			Members:     &Members{Member: members},
			Origin:      CodeValue{Value: "UI"},
		}

		params := url.Values{}
		params.Set("id_type", idType)
		params.Set("op", "add_members")
		params.Set("fail_on_invalid_id", "false")

		var updated Set
		if err := c.do(ctx, "POST", "/conf/sets/"+setID, params, body, &updated); err != nil {
			return fmt.Errorf("adding members %d-%d to set %s: %w", start+1, end, setID, err)
		}

		log.Printf("added %d members to set %s", len(chunk), setID)
		if updated.MemberCount != nil && updated.MemberCount.Value == "0" {
			log.Printf("WARN set %s still reports 0 members, check identifier type %s", setID, idType)
		}
	}
	return nil
}

// CreateAndPopulateSet creates a set and fills it in one operation,
// returning the new set ID.
func (c *Client) CreateAndPopulateSet(ctx context.Context, name, description, note string, ids []string, idType string) (string, error) {
	set, err := c.CreateSet(ctx, name, description, note)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return set.ID, nil
	}
	if err := c.AddMembers(ctx, set.ID, ids, idType); err != nil {
		return set.ID, err
	}
	return set.ID, nil
}
