package gamedata

// MapDef is a named map as authored in maps.json. Terrain rows are strings of
// terrain codes, one character per cell.
type MapDef struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Terrain     []string            `json:"terrain"`
	SpawnPoints map[string][][2]int `json:"spawnPoints"`
}

// MapsFile represents the structure of maps.json.
type MapsFile struct {
	Maps []MapDef `json:"maps"`
}

// LoadMaps loads map definitions from the embedded maps.json file.
func LoadMaps() ([]MapDef, error) {
	file, err := Load[MapsFile]("maps.json")
	if err != nil {
		return nil, err
	}
	return file.Maps, nil
}

// LoadMapsFile loads map definitions from a maps.json-shaped file on disk.
func LoadMapsFile(path string) ([]MapDef, error) {
	file, err := LoadFile[MapsFile](path)
	if err != nil {
		return nil, err
	}
	return file.Maps, nil
}
