// Package registration persists and looks up trip registrations in a
// key-value table that only supports full scans.
package registration

// Record is one stored registration. The id is assigned at creation and the
// record is never updated or deleted afterwards.
type Record struct {
	ID          string `dynamodbav:"id" json:"id"`
	Name        string `dynamodbav:"name" json:"name"`
	Email       string `dynamodbav:"email" json:"email"`
	Destination string `dynamodbav:"destination" json:"destination"`

	// CreatedAt is the creation time in Unix seconds.
	CreatedAt int64 `dynamodbav:"created_at" json:"createdAt"`
}
