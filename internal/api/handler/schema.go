package handler

import "github.com/unionportal/ballot-system/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type requestCodeRequest struct {
	Phone string `json:"phone" validate:"required,mobile"`
}

type requestCodeResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

type verifyCodeRequest struct {
	Phone string `json:"phone" validate:"required,mobile"`
	Code  string `json:"code"  validate:"required,otp"`
}

type sessionResponse struct {
	Token    string           `json:"token,omitempty"`
	Identity *domain.Identity `json:"identity"`
}

type castBallotRequest struct {
	CandidateID string `json:"candidate_id" validate:"required,max=128"`
}

type ballotStatusResponse struct {
	HasVoted bool           `json:"has_voted"`
	Ballot   *domain.Ballot `json:"ballot,omitempty"`
}

type setApprovalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}
