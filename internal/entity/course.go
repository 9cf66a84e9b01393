package entity

// Course is one watched e-class course.
type Course struct {
	ID             int    `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	DownloadFolder string `yaml:"download_folder" json:"download_folder"`
}
