package recency

import (
	"strings"
	"unicode/utf16"
)

// Palette é a lista fixa de cores dos botões, na ordem usada pelo hash.
var Palette = [...]string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
	"#F8B500", "#FF8C00", "#00CED1", "#FF69B4", "#32CD32",
	"#FFD700", "#FF4500", "#1E90FF", "#FF1493", "#00FA9A",
}

// ColorFor escolhe a cor de forma determinística a partir da chave.
//
// O hash é o de java.lang.String (31*h + unidade UTF-16, 32 bits com overflow),
// o mesmo com que os dados já persistidos foram coloridos. O valor absoluto é
// tirado em 64 bits para que MinInt32 também caia dentro da paleta.
func ColorFor(key string) string {
	h := int64(stringHash(key))
	if h < 0 {
		h = -h
	}
	return Palette[h%int64(len(Palette))]
}

func stringHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

// DisplayName tira a última extensão (".mp3"); sem ponto devolve a chave inteira.
func DisplayName(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[:i]
	}
	return key
}
