// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package utils holds small generic helpers shared by the sort engine's
// packages.
package utils

// Zero returns the zero value of T, for use in generic code returning a
// placeholder alongside an "absent" result.
func Zero[T any]() T {
	var zero T
	return zero
}
