// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	id := packId(7, 41)
	gen, idx, ok := unpackId(id)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), gen)
	assert.Equal(t, 41, idx)
}

func TestUnpackInvalidId(t *testing.T) {
	gen, idx, ok := unpackId(invalidId)
	assert.False(t, ok)
	assert.Equal(t, uint32(0), gen)
	assert.Equal(t, 0, idx)
}

func TestPackIndexZero(t *testing.T) {
	id := packId(1, 0)
	assert.NotEqual(t, invalidId, id)
	gen, idx, ok := unpackId(id)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), gen)
	assert.Equal(t, 0, idx)
}
