package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SpeciesInfo is the descriptive metadata shown alongside a species.
type SpeciesInfo struct {
	CommonName         string   `yaml:"common_name" json:"common_name"`
	ScientificName     string   `yaml:"scientific_name" json:"scientific_name"`
	CurrentPopulation  int      `yaml:"current_population" json:"current_population"`
	ConservationStatus string   `yaml:"conservation_status" json:"conservation_status"`
	Overview           string   `yaml:"overview" json:"overview"`
	ImageName          string   `yaml:"image_name" json:"image_name,omitempty"`
	Threats            []string `yaml:"threats" json:"threats"`
	Actions            []string `yaml:"actions" json:"actions"`
}

var (
	defaultThreats = []string{"Habitat loss", "Human conflict", "Climate change"}
	defaultActions = []string{"Protected areas", "Population monitoring", "Public education"}
)

// Catalog is a read-only lookup of species metadata keyed by the species name
// used in the data files.
type Catalog struct {
	entries map[string]SpeciesInfo
}

// NewCatalog copies entries into a catalog. Missing threats or actions fall
// back to generic lists.
func NewCatalog(entries map[string]SpeciesInfo) Catalog {
	c := Catalog{entries: make(map[string]SpeciesInfo, len(entries))}
	for name, info := range entries {
		if len(info.Threats) == 0 {
			info.Threats = defaultThreats
		}
		if len(info.Actions) == 0 {
			info.Actions = defaultActions
		}
		info.Threats = append([]string(nil), info.Threats...)
		info.Actions = append([]string(nil), info.Actions...)
		c.entries[name] = info
	}
	return c
}

// Lookup returns the metadata for a species.
func (c Catalog) Lookup(species string) (SpeciesInfo, bool) {
	info, ok := c.entries[species]
	return info, ok
}

// Names returns the catalogued species in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Threats returns the threats for a species, or generic ones when unknown.
func (c Catalog) Threats(species string) []string {
	if info, ok := c.entries[species]; ok {
		return info.Threats
	}
	return defaultThreats
}

// Actions returns the conservation actions for a species, or generic ones when unknown.
func (c Catalog) Actions(species string) []string {
	if info, ok := c.entries[species]; ok {
		return info.Actions
	}
	return defaultActions
}

// LoadCatalog reads a YAML mapping of species name to SpeciesInfo.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Catalog{}, fmt.Errorf("species catalog %s: %w", path, ErrDataNotFound)
		}
		return Catalog{}, &DataLoadError{Path: path, Err: err}
	}
	var entries map[string]SpeciesInfo
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return Catalog{}, &DataLoadError{Path: path, Err: fmt.Errorf("decode catalog: %w", err)}
	}
	return NewCatalog(entries), nil
}

// DefaultCatalog returns the built-in metadata for the tracked species.
func DefaultCatalog() Catalog {
	return NewCatalog(map[string]SpeciesInfo{
		"Condor": {
			CommonName:         "California Condor",
			ScientificName:     "Gymnogyps californianus",
			CurrentPopulation:  561,
			ConservationStatus: "Critically Endangered",
			Overview:           "The California condor is currently restricted to the western coastal mountains of the contiguous United States and Mexico, as well as the northern desert mountains of Arizona.",
			ImageName:          "condor",
			Threats:            []string{"Lead poisoning", "Habitat loss", "Power line collisions"},
			Actions:            []string{"Captive breeding program", "Lead ammunition bans", "Nest site protection"},
		},
		"Sierra Nevada Red Fox": {
			CommonName:         "Sierra Nevada Red Fox",
			ScientificName:     "Vulpes vulpes necator",
			CurrentPopulation:  50,
			ConservationStatus: "Critically Imperiled",
			Overview:           "The Sierra Nevada red fox is a subspecies of red fox found in the Oregon Cascades and the Sierra Nevada, and likely one of the most endangered mammals in North America.",
			ImageName:          "red_fox",
			Threats:            []string{"Climate change", "Habitat fragmentation", "Competition with coyotes"},
			Actions:            []string{"Habitat restoration", "Population monitoring", "Genetic research"},
		},
		"Red Wolf": {
			CommonName:         "Red Wolf",
			ScientificName:     "Canis rufus",
			CurrentPopulation:  80,
			ConservationStatus: "Critically Endangered",
			Overview:           "The red wolf is a canine native to the southeastern United States that was nearly driven extinct by predator-control programs, habitat destruction, and hybridization with coyotes.",
			ImageName:          "red_wolf",
		},
		"Florida Panther": {
			CommonName:         "Florida Panther",
			ScientificName:     "Puma concolor couguar",
			CurrentPopulation:  250,
			ConservationStatus: "Critically Imperiled",
			Overview:           "The Florida panther is the only confirmed cougar population in the eastern United States and occupies about 5% of its historic range in South Florida.",
			ImageName:          "panther",
		},
		"Ocelot": {
			CommonName:         "Ocelot",
			ScientificName:     "Leopardus pardalis",
			CurrentPopulation:  250,
			ConservationStatus: "Least Concern",
			Overview:           "The ocelot is a medium-sized spotted wild cat ranging from the southwestern United States through Central and South America, declining locally from habitat loss, hunting, and traffic.",
			ImageName:          "ocelot",
		},
	})
}
