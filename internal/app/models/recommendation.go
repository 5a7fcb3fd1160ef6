package models

type RecommendRequest struct {
	CategoryIDs []int64  `json:"category_ids"`
	Tags        []string `json:"tags"`
	Count       int      `json:"count" binding:"omitempty,min=1,max=10"`
}

type RecommendedPlace struct {
	Place    Place `json:"place"`
	Relevant bool  `json:"relevant"`
}

type Recommendation struct {
	Places  []RecommendedPlace `json:"places"`
	Model   string             `json:"model,omitempty"`
	Message string             `json:"message,omitempty"`
}
