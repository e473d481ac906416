package model

// Statistics содержит агрегированные счётчики хранилища
type Statistics struct {
	TotalTeachers      int `json:"totalTeachers"`
	TotalStudents      int `json:"totalStudents"`
	SuspendedStudents  int `json:"suspendedStudents"`
	ActiveStudents     int `json:"activeStudents"`
	TotalRelationships int `json:"totalRelationships"`
}
