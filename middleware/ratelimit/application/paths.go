package application

import "strings"

// PathRule bloqueia URIs que contêm Marker, exceto quando também contêm Unless.
type PathRule struct {
	Marker string
	Unless string
}

// DefaultSensitivePaths são marcadores de arquivos de ambiente, controle de
// versão, diretório de configuração e conexão interna com o banco.
var DefaultSensitivePaths = []PathRule{
	{Marker: ".env", Unless: "assets/environment"},
	{Marker: ".git"},
	{Marker: "configs"},
	{Marker: "DB_connection"},
}

// MatchSensitive retorna a regra que casou com a URI, se houver.
func MatchSensitive(rules []PathRule, uri string) (PathRule, bool) {
	for _, r := range rules {
		if r.Marker == "" || !strings.Contains(uri, r.Marker) {
			continue
		}
		if r.Unless != "" && strings.Contains(uri, r.Unless) {
			continue
		}
		return r, true
	}
	return PathRule{}, false
}
