package book

type CreateBookReq struct {
	Title    string `json:"title" validate:"required"`
	Author   string `json:"author" validate:"required"`
	Category string `json:"category" validate:"required"`
}

type AddInstancesReq struct {
	Count int `json:"count" validate:"required,gt=0"`
}

type SetInstanceStatusReq struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE ACTIVE DAMAGED LOST"`
}
