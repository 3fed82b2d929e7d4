package cleaning

import "sort"

// municipalities maps the English names used by the transaction registry to
// the bilingual labels the rest of the system works with.
var municipalities = map[string]string{
	"Chiyoda Ward":                       "千代田区 (Chiyoda Ward)",
	"Chuo Ward":                          "中央区 (Chuo Ward)",
	"Minato Ward":                        "港区 (Minato Ward)",
	"Shinjuku Ward":                      "新宿区 (Shinjuku Ward)",
	"Bunkyo Ward":                        "文京区 (Bunkyo Ward)",
	"Taito Ward":                         "台東区 (Taito Ward)",
	"Sumida Ward":                        "墨田区 (Sumida Ward)",
	"Koto Ward":                          "江東区 (Koto Ward)",
	"Shinagawa Ward":                     "品川区 (Shinagawa Ward)",
	"Meguro Ward":                        "目黒区 (Meguro Ward)",
	"Ota Ward":                           "大田区 (Ota Ward)",
	"Setagaya Ward":                      "世田谷区 (Setagaya Ward)",
	"Shibuya Ward":                       "渋谷区 (Shibuya Ward)",
	"Nakano Ward":                        "中野区 (Nakano Ward)",
	"Suginami Ward":                      "杉並区 (Suginami Ward)",
	"Toshima Ward":                       "豊島区 (Toshima Ward)",
	"Kita Ward":                          "北区 (Kita Ward)",
	"Arakawa Ward":                       "荒川区 (Arakawa Ward)",
	"Itabashi Ward":                      "板橋区 (Itabashi Ward)",
	"Nerima Ward":                        "練馬区 (Nerima Ward)",
	"Adachi Ward":                        "足立区 (Adachi Ward)",
	"Katsushika Ward":                    "葛飾区 (Katsushika Ward)",
	"Edogawa Ward":                       "江戸川区 (Edogawa Ward)",
	"Hachioji City":                      "八王子市 (Hachioji City)",
	"Tachikawa City":                     "立川市 (Tachikawa City)",
	"Musashino City":                     "武蔵野市 (Musashino City)",
	"Mitaka City":                        "三鷹市 (Mitaka City)",
	"Oume City":                          "青梅市 (Oume City)",
	"Fuchu City":                         "府中市 (Fuchu City)",
	"Akishima City":                      "昭島市 (Akishima City)",
	"Chofu City":                         "調布市 (Chofu City)",
	"Machida City":                       "町田市 (Machida City)",
	"Koganei City":                       "小金井市 (Koganei City)",
	"Kodaira City":                       "小平市 (Kodaira City)",
	"Hino City":                          "日野市 (Hino City)",
	"Higashimurayama City":               "東村山市 (Higashimurayama City)",
	"Kokubunji City":                     "国分寺市 (Kokubunji City)",
	"Kunitachi City":                     "国立市 (Kunitachi City)",
	"Fussa City":                         "福生市 (Fussa City)",
	"Komae City":                         "狛江市 (Komae City)",
	"Higashiyamato City":                 "東大和市 (Higashiyamato City)",
	"Kiyose City":                        "清瀬市 (Kiyose City)",
	"Higashikurume City":                 "東久留米市 (Higashikurume City)",
	"Musashimurayama City":               "武蔵村山市 (Musashimurayama City)",
	"Tama City":                          "多摩市 (Tama City)",
	"Inagi City":                         "稲城市 (Inagi City)",
	"Hamura City":                        "羽村市 (Hamura City)",
	"Akiruno City":                       "あきる野市 (Akiruno City)",
	"Nishitokyo City":                    "西東京市 (Nishitokyo City)",
	"Mizuho Town, Nishitama County":      "瑞穂町 (Mizuho Town, Nishitama County)",
	"Hinode Town, Nishitama County":      "日の出町 (Hinode Town, Nishitama County)",
	"Hinohara Village, Nishitama County": "檜原村 (Hinohara Village, Nishitama County)",
	"Okutama Town, Nishitama County":     "奥多摩町 (Okutama Town, Nishitama County)",
	"Oshima Town":                        "大島町 (Oshima Town)",
	"Niijima Village":                    "新島村 (Niijima Village)",
	"Miyake Village":                     "三宅村 (Miyake Village)",
	"Hachijo Town":                       "八丈町 (Hachijo Town)",
	"Ogasawara Village":                  "小笠原村 (Ogasawara Village)",
	"Kozushima Village":                  "神津島村 (Kozushima Village)",
}

var labels = func() map[string]bool {
	set := make(map[string]bool, len(municipalities))
	for _, label := range municipalities {
		set[label] = true
	}
	return set
}()

// MapMunicipality returns the bilingual label for a registry name. A value
// that already is a bilingual label maps to itself.
func MapMunicipality(name string) (string, bool) {
	if label, ok := municipalities[name]; ok {
		return label, true
	}
	if labels[name] {
		return name, true
	}
	return "", false
}

// Municipalities lists every bilingual label, sorted.
func Municipalities() []string {
	out := make([]string, 0, len(municipalities))
	for _, label := range municipalities {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
