package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reading struct {
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(reading{Sensor: "t1"}, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"sensor\": \"t1\"")
}

func TestMarshal_SortedKeys(t *testing.T) {
	data, err := Marshal(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(data))
}

func TestUnmarshal_Untyped(t *testing.T) {
	var m map[string]any
	require.NoError(t, Unmarshal([]byte(`{"n": 4, "s": "x"}`), &m))
	assert.Equal(t, map[string]any{"n": float64(4), "s": "x"}, m)
}

func TestJSONCodec(t *testing.T) {
	c := JSON[reading]()

	data, err := c.Encode(reading{Sensor: "t2", Value: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sensor":"t2","value":3}`, string(data))

	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, reading{Sensor: "t2", Value: 3}, got)

	_, err = c.Decode([]byte("{not json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "codec.reading")
}

func TestTextCodec(t *testing.T) {
	c := Text()

	data, err := c.Encode("héllo")
	require.NoError(t, err)
	assert.Equal(t, []byte("héllo"), data)

	got, err := c.Decode([]byte("{not json"))
	require.NoError(t, err)
	assert.Equal(t, "{not json", got)
}
