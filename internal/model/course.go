package model

// swagger:model Course
type Course struct {
	UUIDBase
	Title       string  `gorm:"size:255;not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	ImageURL    string  `gorm:"size:512" json:"imageUrl"`
	Price       float64 `gorm:"type:decimal(12,2);default:0" json:"price"`
	Grade       string  `gorm:"size:50;index" json:"grade"`
	Subject     string  `gorm:"size:100;index" json:"subject"`
	Semester    string  `gorm:"size:50" json:"semester"`
	IsPublished bool    `gorm:"default:false" json:"isPublished"`
	TeacherID   uint    `gorm:"index" json:"teacherId"`
}

func (Course) TableName() string {
	return "courses"
}

// Purchase 用户与课程的购买关系，记录存在即表示拥有访问权限
type Purchase struct {
	BaseModel
	UserID    uint    `gorm:"uniqueIndex:idx_purchase_user_course;not null" json:"userId"`
	CourseID  string  `gorm:"uniqueIndex:idx_purchase_user_course;type:varchar(36);not null" json:"courseId"`
	PricePaid float64 `gorm:"type:decimal(12,2);default:0" json:"pricePaid"`
}

func (Purchase) TableName() string {
	return "purchases"
}
