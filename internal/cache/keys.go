package cache

import "strings"

// GlobalKeyPrefix namespaces every key this service writes.
const GlobalKeyPrefix = "tubequiz"

// GenerateCacheKey builds "prefix:service:type:id[:p1_p2...]".
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return baseKey + ":" + strings.Join(paramsKey, "_")
	}
	return baseKey
}

// QuizDetailKey holds the serialized quiz with the given id.
func QuizDetailKey(quizID string) string {
	return GenerateCacheKey("quiz", "detail", quizID)
}

// QuizListKey holds the serialized quiz list of one user.
func QuizListKey(userID string) string {
	return GenerateCacheKey("quiz", "list", userID)
}

// RevokedTokenKey marks a refresh token id as logged out.
func RevokedTokenKey(jti string) string {
	return GenerateCacheKey("auth", "revoked", jti)
}
