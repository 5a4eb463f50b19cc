package bot

// Authorizer gates every entry point. Unauthorized events are dropped
// without a reply.
type Authorizer interface {
	IsAuthorized(userID int64) bool
}

// AllowList authorizes the listed user IDs. An empty list authorizes
// everyone.
type AllowList []int64

func (a AllowList) IsAuthorized(userID int64) bool {
	if len(a) == 0 {
		return true
	}

	for _, allowed := range a {
		if allowed == userID {
			return true
		}
	}
	return false
}
