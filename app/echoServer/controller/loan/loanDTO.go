package loan

type CreateLoanReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type ReturnLoanReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type RenewLoanReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}
