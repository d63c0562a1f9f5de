package resolver

import (
	"regexp"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

// ColumnSpec describes how one logical field is found among report headers.
type ColumnSpec struct {
	Field    string
	Aliases  []string
	Patterns []*regexp.Regexp
	// Default is the header used when nothing resolves.
	Default string
}

// Specs covers the English, Chinese, Japanese, German, French, Spanish and
// Italian variants of the search term report.
var Specs = []ColumnSpec{
	{
		Field: models.FieldDate,
		Aliases: []string{
			"Date", "Start Date", "Report Date",
			"日期", "开始日期", "日付", "開始日",
			"Datum", "Startdatum", "Fecha", "Fecha de inicio", "Data", "Data di inizio", "Date de début",
		},
		Patterns: compile(`(?i)\bdate\b|日期|日付|datum|fecha`),
		Default:  "Date",
	},
	{
		Field: models.FieldCampaignName,
		Aliases: []string{
			"Campaign Name", "Campaign",
			"广告活动名称", "广告活动", "廣告活動名稱", "キャンペーン名", "キャンペーン",
			"Kampagnenname", "Kampagne", "Nom de la campagne", "Campagne",
			"Nombre de la campaña", "Campaña", "Nome campagna", "Campagna",
		},
		Patterns: compile(`(?i)campaign|广告活动|キャンペーン|kampagne|campagn|campaña`),
		Default:  "Campaign Name",
	},
	{
		Field: models.FieldAdGroupName,
		Aliases: []string{
			"Ad Group Name", "Ad Group",
			"广告组名称", "广告组", "廣告群組名稱", "広告グループ名", "広告グループ",
			"Anzeigengruppenname", "Anzeigengruppe", "Nom du groupe d'annonces", "Groupe d'annonces",
			"Nombre del grupo de anuncios", "Grupo de anuncios", "Nome gruppo di annunci", "Gruppo di annunci",
		},
		Patterns: compile(`(?i)ad\s*group|广告组|広告グループ|anzeigengruppe|groupe d.annonces|grupo de anuncios|gruppo di annunci`),
		Default:  "Ad Group Name",
	},
	{
		Field: models.FieldMatchType,
		Aliases: []string{
			"Match Type",
			"匹配类型", "匹配類型", "マッチタイプ",
			"Übereinstimmungstyp", "Type de correspondance", "Tipo de concordancia", "Tipo di corrispondenza",
		},
		Patterns: compile(`(?i)match|匹配|マッチ|übereinstimmung|correspondance|concordancia|corrispondenza`),
		Default:  "Match Type",
	},
	{
		Field: models.FieldSearchTerm,
		Aliases: []string{
			"Customer Search Term", "Search Term", "Query",
			"客户搜索词", "搜索词", "顧客搜尋字詞", "カスタマーの検索キーワード", "検索キーワード", "検索語句",
			"Suchbegriff des Kunden", "Suchbegriff", "Terme de recherche client", "Terme de recherche",
			"Término de búsqueda del cliente", "Término de búsqueda", "Termine di ricerca del cliente", "Termine di ricerca",
		},
		Patterns: compile(`(?i)search\s*term|搜索词|搜尋|検索|suchbegriff|recherche|búsqueda|busqueda|ricerca`),
		Default:  "Customer Search Term",
	},
	{
		Field: models.FieldImpressions,
		Aliases: []string{
			"Impressions", "Impr.",
			"展示量", "展示次数", "曝光量", "曝光", "インプレッション", "インプレッション数",
			"Impressionen", "Impresiones", "Impressioni",
		},
		Patterns: compile(`(?i)impr|展示|曝光|インプレッション`),
		Default:  "Impressions",
	},
	{
		Field: models.FieldClicks,
		Aliases: []string{
			"Clicks",
			"点击量", "点击次数", "点击", "點擊", "クリック数", "クリック",
			"Klicks", "Clics",
		},
		Patterns: compile(`(?i)^\s*clicks?\s*$|点击|點擊|クリック|klick|clic`),
		Default:  "Clicks",
	},
	{
		Field: models.FieldSpend,
		Aliases: []string{
			"Spend", "Total Spend",
			"花费", "支出", "花費", "広告費", "費用",
			"Ausgaben", "Dépenses", "Gasto", "Spesa",
		},
		Patterns: compile(`(?i)spend|^\s*cost\s*$|花费|支出|広告費|費用|ausgaben|dépense|gasto|spesa`),
		Default:  "Spend",
	},
	{
		Field: models.FieldSales,
		Aliases: []string{
			"7 Day Total Sales", "14 Day Total Sales", "Total Sales", "Sales",
			"7天总销售额", "14天总销售额", "销售额", "總銷售額", "7日間の総売上高", "売上高", "売上",
			"Gesamtumsatz nach 7 Tagen", "Umsatz", "Ventes totales sur 7 jours", "Ventes",
			"Ventas totales de 7 días", "Ventas", "Vendite totali di 7 giorni", "Vendite",
		},
		Patterns: compile(`(?i)sales|销售额|銷售額|売上|umsatz|ventes|ventas|vendite`),
		Default:  "7 Day Total Sales",
	},
	{
		Field: models.FieldOrders,
		Aliases: []string{
			"7 Day Total Orders (#)", "14 Day Total Orders (#)", "Total Orders", "Orders",
			"7天总订单数(#)", "7天总订单数", "订单数", "订单量", "總訂單數", "7日間の総注文数(#)", "注文数",
			"Bestellungen insgesamt nach 7 Tagen (#)", "Bestellungen", "Total des commandes sur 7 jours (#)", "Commandes",
			"Total de pedidos de 7 días (#)", "Pedidos", "Totale ordini di 7 giorni (#)", "Ordini",
		},
		Patterns: compile(`(?i)orders|订单|訂單|注文|bestellung|commandes|pedidos|ordini`),
		Default:  "7 Day Total Orders (#)",
	},
}

// SpecFor returns the spec of a logical field.
func SpecFor(field string) (ColumnSpec, bool) {
	for _, s := range Specs {
		if s.Field == field {
			return s, true
		}
	}
	return ColumnSpec{}, false
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}
