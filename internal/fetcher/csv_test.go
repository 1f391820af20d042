package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  CSVOptions
		want  [][]string
	}{
		{
			name:  "comma",
			input: "a,b\n1,2\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "semicolon sniffed",
			input: "clave;pais;nota\n001;Mexico;a,b\n",
			want:  [][]string{{"clave", "pais", "nota"}, {"001", "Mexico", "a,b"}},
		},
		{
			name:  "tab sniffed",
			input: "clave\tpais\n001\tMexico\n",
			want:  [][]string{{"clave", "pais"}, {"001", "Mexico"}},
		},
		{
			name:  "quoted separators ignored when sniffing",
			input: "\"a;b;c\",d\n1,2\n",
			want:  [][]string{{"a;b;c", "d"}, {"1", "2"}},
		},
		{
			name:  "explicit delimiter wins",
			input: "a;b,c\n",
			opts:  CSVOptions{Delimiter: ','},
			want:  [][]string{{"a;b", "c"}},
		},
		{
			name:  "byte order mark dropped",
			input: "\ufeffcodigo,pais\n1,Mexico\n",
			want:  [][]string{{"codigo", "pais"}, {"1", "Mexico"}},
		},
		{
			name:  "trim space",
			input: " a , b \n",
			opts:  CSVOptions{TrimSpace: true},
			want:  [][]string{{"a", "b"}},
		},
		{
			name:  "comment lines skipped",
			input: "# generado\na,b\n",
			opts:  CSVOptions{Comment: '#'},
			want:  [][]string{{"a", "b"}},
		},
		{
			name:  "variable width rows",
			input: "a,b,c\n1\n",
			want:  [][]string{{"a", "b", "c"}, {"1"}},
		},
		{
			name:  "lazy quotes",
			input: "a,b\"c\n",
			opts:  CSVOptions{LazyQuotes: true},
			want:  [][]string{{"a", "b\"c"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadCSV(context.Background(), strings.NewReader(tt.input), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestReadCSV_MalformedQuote(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("a,b\n1,\"2\n"), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read row 2")
}

func TestReadCSV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader("a,b\n1,2\n"), CSVOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
