package domain

// Interest is a topic a user follows together with what they want from it.
type Interest struct {
	Topic       string `json:"topic" validate:"required"`
	Explanation string `json:"explanation"`
}

// User is a registered recipient keyed by email.
type User struct {
	Email     string     `json:"email"`
	Interests []Interest `json:"interests"`
}

// Topics returns the interest topics in registration order.
func (u User) Topics() []string {
	topics := make([]string, 0, len(u.Interests))
	for _, interest := range u.Interests {
		topics = append(topics, interest.Topic)
	}
	return topics
}
