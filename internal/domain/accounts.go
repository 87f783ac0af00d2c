package domain

type Buyer struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone_number"`
	Address  string `json:"address"`
}

type Shop struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	OwnerName   string `json:"owner_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	Description string `json:"description"`
	Verified    bool   `json:"verified"`
}
