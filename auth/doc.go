// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth guards the teacher's admin HTTP endpoints.

# Admin Keys

The key comes from configuration. When none is set the teacher generates a
random 24-byte (192-bit) key at startup and logs it once:

	key, err := auth.GenerateAdminKey()

Keys are URL-safe base64 without padding. Requests present the key in the
X-Admin-Key header and are checked in constant time:

	err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), key)
*/
package auth
