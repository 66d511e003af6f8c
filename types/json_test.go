/*
 * Copyright 2016 iHeartRadio.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONObjectScan(t *testing.T) {
	var obj JSONObject
	require.NoError(t, obj.Scan([]byte(`{"name":"alpha"}`)))
	assert.Equal(t, "alpha", obj["name"])

	// Some drivers hand JSON columns back as strings.
	require.NoError(t, obj.Scan(`{"name":"beta"}`))
	assert.Equal(t, "beta", obj["name"])

	require.NoError(t, obj.Scan(nil))
	assert.Empty(t, obj)

	assert.Error(t, obj.Scan(42))
}

func TestJSONObjectValue(t *testing.T) {
	value, err := JSONObject{"name": "alpha"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alpha"}`, string(value.([]byte)))

	value, err = JSONObject(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestJSONArrayScan(t *testing.T) {
	var arr JSONArray
	require.NoError(t, arr.Scan([]byte(`[{"name":"alpha"},{"name":"beta"}]`)))
	require.Len(t, arr, 2)
	assert.Equal(t, "beta", arr[1]["name"])

	require.NoError(t, arr.Scan(""))
	assert.Empty(t, arr)
}
