package validation

import (
	"strings"
	"testing"
)

func TestValidateNodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *NodeRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid block",
			req:  &NodeRequest{ID: "B1", Kind: "Block", Aspect: "Function", Name: "Pump"},
		},
		{
			name: "valid terminal without aspect",
			req:  &NodeRequest{ID: "t-1.a", Kind: "Terminal"},
		},
		{
			name:    "nil request",
			req:     nil,
			wantErr: true,
			errMsg:  "cannot be nil",
		},
		{
			name:    "missing id",
			req:     &NodeRequest{Kind: "Block"},
			wantErr: true,
			errMsg:  "id: field is required",
		},
		{
			name:    "unknown kind",
			req:     &NodeRequest{ID: "P1", Kind: "Pipe"},
			wantErr: true,
			errMsg:  `kind: "Pipe" is not a node kind`,
		},
		{
			name:    "kind is case sensitive",
			req:     &NodeRequest{ID: "B1", Kind: "block"},
			wantErr: true,
			errMsg:  "not a node kind",
		},
		{
			name:    "unknown aspect",
			req:     &NodeRequest{ID: "B1", Kind: "Block", Aspect: "Colour"},
			wantErr: true,
			errMsg:  `aspect: "Colour" is not an aspect`,
		},
		{
			name:    "id with spaces",
			req:     &NodeRequest{ID: "B 1", Kind: "Block"},
			wantErr: true,
			errMsg:  "invalid characters",
		},
		{
			name:    "id too long",
			req:     &NodeRequest{ID: strings.Repeat("x", 129), Kind: "Block"},
			wantErr: true,
			errMsg:  "must not exceed 128",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateNodeRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidateEdgeRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *EdgeRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid edge",
			req:  &EdgeRequest{ID: "e1", Kind: "PartOf", Source: "B1", Target: "B2"},
		},
		{
			name: "kind in any case",
			req:  &EdgeRequest{ID: "e1", Kind: "partOf", Source: "B1", Target: "B2"},
		},
		{
			name:    "unknown kind",
			req:     &EdgeRequest{ID: "e1", Kind: "Owns", Source: "B1", Target: "B2"},
			wantErr: true,
			errMsg:  `kind: "Owns" is not a relation kind`,
		},
		{
			name:    "missing target",
			req:     &EdgeRequest{ID: "e1", Kind: "PartOf", Source: "B1"},
			wantErr: true,
			errMsg:  "target: field is required",
		},
		{
			name:    "self loop",
			req:     &EdgeRequest{ID: "e1", Kind: "PartOf", Source: "B1", Target: "B1"},
			wantErr: true,
			errMsg:  "target: must differ from source",
		},
		{
			name:    "nil request",
			wantErr: true,
			errMsg:  "cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEdgeRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateEdgeRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidatePatchRequest(t *testing.T) {
	if err := ValidatePatchRequest(&PatchRequest{Fields: []string{"terminalOf", "connectedBy"}}); err != nil {
		t.Errorf("valid patch rejected: %v", err)
	}
	if err := ValidatePatchRequest(&PatchRequest{}); err == nil {
		t.Error("empty patch accepted")
	}
	err := ValidatePatchRequest(&PatchRequest{Fields: []string{"terminalOf", "owner"}})
	if err == nil || !strings.Contains(err.Error(), `"owner" is not a relation field`) {
		t.Errorf("unknown field error = %v", err)
	}
}

func TestCheckReportsEveryFailure(t *testing.T) {
	errs := Check(&EdgeRequest{Kind: "Owns"})
	if len(errs) != 4 {
		t.Fatalf("Check() returned %d errors, want 4: %v", len(errs), errs)
	}

	rules := map[string]string{}
	for _, e := range errs {
		rules[e.Field] = e.Rule
	}
	want := map[string]string{"id": "required", "kind": RuleEdgeKind, "source": "required", "target": "required"}
	for field, rule := range want {
		if rules[field] != rule {
			t.Errorf("field %s failed rule %q, want %q", field, rules[field], rule)
		}
	}
}

func TestValidateBatchSize(t *testing.T) {
	if err := ValidateBatchSize(MaxBatchSize); err != nil {
		t.Errorf("ValidateBatchSize(max) = %v", err)
	}
	if err := ValidateBatchSize(MaxBatchSize + 1); err == nil {
		t.Error("ValidateBatchSize(max+1) should fail")
	}
}
