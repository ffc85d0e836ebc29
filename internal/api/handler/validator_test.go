package handler

import (
	"strings"
	"testing"
)

func TestValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{name: "valid verify", req: &verifyCodeRequest{Phone: "09121234567", Code: "4821"}},
		{name: "missing phone", req: &verifyCodeRequest{Code: "4821"}, wantErr: "phone is required"},
		{name: "bad phone", req: &requestCodeRequest{Phone: "+989121234567"}, wantErr: "phone must be an 11-digit mobile number"},
		{name: "short code", req: &verifyCodeRequest{Phone: "09121234567", Code: "482"}, wantErr: "code must be a 4-digit code"},
		{name: "letters in code", req: &verifyCodeRequest{Phone: "09121234567", Code: "48a1"}, wantErr: "code must be a 4-digit code"},
		{name: "long candidate", req: &castBallotRequest{CandidateID: strings.Repeat("x", 129)}, wantErr: "candidate_id must be at most 128"},
		{name: "approval missing", req: &setApprovalRequest{}, wantErr: "approved is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.req)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q, got %v", tc.wantErr, err)
			}
		})
	}
}
