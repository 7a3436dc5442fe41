package domain

// KeyPrefix namespaces all catalog keys in Redis.
// Overridable per deployment via storage.key_prefix.
const KeyPrefix = "renoplan:"
