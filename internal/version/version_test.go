package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfoMatchesGetters(t *testing.T) {
	v, c, d := Info()
	require.NotEmpty(t, v)
	require.Equal(t, GetVersion(), v)
	require.Equal(t, GetCommit(), c)
	require.Equal(t, GetDate(), d)
}

func TestString(t *testing.T) {
	s := String()
	require.Contains(t, s, "storefront")
	require.Contains(t, s, "version="+GetVersion())
	require.Contains(t, s, "commit="+GetCommit())
	require.Contains(t, s, "date="+GetDate())
}
